package course

import (
	"github.com/google/uuid"

	"github.com/natibo/natibo/internal/domain/content"
)

// PlaybackItem is one sentence to be played in a study session.
type PlaybackItem struct {
	Position int                `json:"position"`
	Language content.LanguageID `json:"language"`
	Sentence content.Sentence   `json:"sentence"`
}

// SentenceSet is a cohort of groups introduced on the same day.
//
// The review pattern lists repetitions per day of the set's life: age 0 is the day
// the set was introduced, and every carry-forward adds one. Once a non-empty pattern
// is exhausted the set no longer builds and gets pruned. An empty pattern plays the
// set once a day for as long as it is carried.
type SentenceSet struct {
	id            string
	groups        []SentenceGroup
	reviewPattern []int
	order         string
	firstDay      bool
	age           int

	reps     int
	playlist []PlaybackItem
}

func newSentenceSet(groups []SentenceGroup, reviewPattern []int, order string) SentenceSet {
	return SentenceSet{
		id:            uuid.New().String(),
		groups:        groups,
		reviewPattern: copyInts(reviewPattern),
		order:         order,
		firstDay:      true,
	}
}

// Build materializes the set content against the store and assembles its playlist
// for the set's current age. Rebuilding starts over, so content is never duplicated.
// It returns false when the set has nothing to study and should be pruned.
func (s *SentenceSet) Build(store content.Store, languages []content.LanguageID) bool {
	s.reps = 0
	s.playlist = nil

	if !s.Due() {
		return false
	}

	built := make([]SentenceGroup, 0, len(s.groups))
	for _, g := range s.groups {
		if rg, ok := g.resolve(store); ok {
			built = append(built, rg)
		}
	}
	s.groups = built
	if len(built) == 0 {
		return false
	}

	s.assemble(languages)
	return true
}

// assemble derives the playlist from already built groups.
func (s *SentenceSet) assemble(languages []content.LanguageID) {
	s.reps = s.RepsToday()
	s.playlist = nil
	order := orderIndexes(s.order)

	for r := 0; r < s.reps; r++ {
		for _, g := range s.groups {
			for _, idx := range order {
				if idx < 0 || idx >= len(languages) {
					continue
				}
				if sentence, ok := g.Sentence(languages[idx]); ok {
					s.playlist = append(s.playlist, PlaybackItem{
						Position: g.Position,
						Language: languages[idx],
						Sentence: sentence,
					})
				}
			}
		}
	}
}

// Due reports whether the review pattern still schedules the set at its current age.
func (s SentenceSet) Due() bool {
	return len(s.reviewPattern) == 0 || s.age < len(s.reviewPattern)
}

// RepsToday returns how many times the groups are repeated at the current age.
func (s SentenceSet) RepsToday() int {
	if len(s.reviewPattern) == 0 {
		return 1
	}
	if !s.Due() {
		return 0
	}
	return s.reviewPattern[s.age]
}

// carryForward returns an independent copy of the set aged by one day, switched to
// reviewOrder when one is given.
func (s SentenceSet) carryForward(reviewOrder string) SentenceSet {
	out := s.clone()
	if reviewOrder != "" {
		out.order = reviewOrder
	}
	out.firstDay = false
	out.age++
	out.reps = 0
	out.playlist = nil
	return out
}

func (s SentenceSet) clone() SentenceSet {
	out := s
	out.reviewPattern = copyInts(s.reviewPattern)
	out.groups = make([]SentenceGroup, len(s.groups))
	for i, g := range s.groups {
		out.groups[i] = g.clone()
	}
	if s.playlist != nil {
		out.playlist = make([]PlaybackItem, len(s.playlist))
		copy(out.playlist, s.playlist)
	}
	return out
}

// ID returns the set identifier, stable across carry-forwards.
func (s SentenceSet) ID() string { return s.id }

// Len returns the number of groups.
func (s SentenceSet) Len() int { return len(s.groups) }

// Groups returns a copy of the groups.
func (s SentenceSet) Groups() []SentenceGroup {
	out := make([]SentenceGroup, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.clone()
	}
	return out
}

// ReviewPattern returns a copy of the set's review pattern.
func (s SentenceSet) ReviewPattern() []int { return copyInts(s.reviewPattern) }

// Order returns the playback order tag.
func (s SentenceSet) Order() string { return s.order }

// FirstDay reports whether the set introduces new material on its day.
func (s SentenceSet) FirstDay() bool { return s.firstDay }

// Age returns the number of days since the set was introduced.
func (s SentenceSet) Age() int { return s.age }

// Reps returns the repetitions assembled for the day.
func (s SentenceSet) Reps() int { return s.reps }

// Playlist returns a copy of the assembled playback sequence.
func (s SentenceSet) Playlist() []PlaybackItem {
	out := make([]PlaybackItem, len(s.playlist))
	copy(out, s.playlist)
	return out
}

// prioritizeNewest moves the last set to the front and keeps the relative order of
// the others. Given a previous day's sets [A, B, C], where C was introduced that day,
// it returns [C, A, B]. Slices with fewer than two sets are returned unchanged.
func prioritizeNewest(sets []SentenceSet) []SentenceSet {
	if len(sets) < 2 {
		return sets
	}
	out := make([]SentenceSet, 0, len(sets))
	out = append(out, sets[len(sets)-1])
	return append(out, sets[:len(sets)-1]...)
}
