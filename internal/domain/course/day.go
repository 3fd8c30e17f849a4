package course

import (
	"time"

	"github.com/google/uuid"

	"github.com/natibo/natibo/internal/domain/content"
)

// Day is one study session: an ordered list of sets plus completion state.
// Reviews are counted in playback items across all sets of the day.
type Day struct {
	id        string
	sets      []SentenceSet
	completed bool
	pause     time.Duration
	reviewed  int
	createdAt time.Time
}

func newDay(sets []SentenceSet, pause time.Duration) *Day {
	return &Day{
		id:        uuid.New().String(),
		sets:      sets,
		pause:     pause,
		createdAt: time.Now().UTC(),
	}
}

// materialize builds every set and then drops those that reported nothing to study.
// Every set is built before any is removed.
func (d *Day) materialize(store content.Store, languages []content.LanguageID) {
	empty := make(map[int]struct{})
	for i := range d.sets {
		if !d.sets[i].Build(store, languages) {
			empty[i] = struct{}{}
		}
	}
	if len(empty) == 0 {
		return
	}

	kept := make([]SentenceSet, 0, len(d.sets)-len(empty))
	for i, s := range d.sets {
		if _, drop := empty[i]; !drop {
			kept = append(kept, s)
		}
	}
	d.sets = kept
}

// ID returns the day identifier.
func (d *Day) ID() string { return d.id }

// Len returns the number of sets.
func (d *Day) Len() int { return len(d.sets) }

// IsEmpty reports whether the day has nothing to study, which means the course
// ran out of material.
func (d *Day) IsEmpty() bool { return len(d.sets) == 0 }

// Sets returns copies of the day's sets in playback order.
func (d *Day) Sets() []SentenceSet {
	out := make([]SentenceSet, len(d.sets))
	for i, s := range d.sets {
		out[i] = s.clone()
	}
	return out
}

// NewSet returns the set introduced on this day, if it survived pruning.
func (d *Day) NewSet() (SentenceSet, bool) {
	for _, s := range d.sets {
		if s.firstDay {
			return s.clone(), true
		}
	}
	return SentenceSet{}, false
}

// NewSentenceCount returns the number of groups introduced on this day.
func (d *Day) NewSentenceCount() int {
	for _, s := range d.sets {
		if s.firstDay {
			return len(s.groups)
		}
	}
	return 0
}

// ReviewSetCount returns the number of carried-forward sets.
func (d *Day) ReviewSetCount() int {
	n := 0
	for _, s := range d.sets {
		if !s.firstDay {
			n++
		}
	}
	return n
}

// TotalReviews returns the number of playback items of the day.
func (d *Day) TotalReviews() int {
	total := 0
	for _, s := range d.sets {
		total += len(s.playlist)
	}
	return total
}

// ReviewsLeft returns the playback items not yet reviewed.
func (d *Day) ReviewsLeft() int {
	return d.TotalReviews() - d.reviewed
}

// IsCompleted reports whether the day was finished.
func (d *Day) IsCompleted() bool { return d.completed }

// Pause returns the gap between played sentences.
func (d *Day) Pause() time.Duration { return d.pause }

// CreatedAt returns when the day was prepared.
func (d *Day) CreatedAt() time.Time { return d.createdAt }

// recordReviews advances the review position by n, clamped to the day length,
// and returns the number actually recorded.
func (d *Day) recordReviews(n int) int {
	left := d.ReviewsLeft()
	if n > left {
		n = left
	}
	if n < 0 {
		n = 0
	}
	d.reviewed += n
	return n
}

func (d *Day) complete() {
	d.completed = true
}
