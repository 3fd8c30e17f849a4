package course

import (
	"time"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// Plain data copies of a course for storage and presentation.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is the serializable state of a course.
type Snapshot struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Languages   []string         `json:"languages"`
	Books       []string         `json:"books"`
	Schedule    ScheduleSnapshot `json:"schedule"`
	CurrentDay  *DaySnapshot     `json:"current_day,omitempty"`
	PastDays    []DaySnapshot    `json:"past_days"`
	NumReps     int              `json:"num_reps"`
	PauseMillis int64            `json:"pause_millis"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Version     int              `json:"version"`
}

// ScheduleSnapshot is the serializable state of a schedule.
type ScheduleSnapshot struct {
	ReviewPattern   []int  `json:"review_pattern"`
	SentencesPerDay int    `json:"sentences_per_day"`
	Cursor          int    `json:"cursor"`
	Order           string `json:"order"`
	ReviewOrder     string `json:"review_order,omitempty"`
}

// DaySnapshot is the serializable state of a day.
type DaySnapshot struct {
	ID          string        `json:"id"`
	Sets        []SetSnapshot `json:"sets"`
	Completed   bool          `json:"completed"`
	PauseMillis int64         `json:"pause_millis"`
	Reviewed    int           `json:"reviewed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SetSnapshot is the serializable state of a sentence set. Playlist is derived and
// ignored by Restore.
type SetSnapshot struct {
	ID            string          `json:"id"`
	Groups        []SentenceGroup `json:"groups"`
	ReviewPattern []int           `json:"review_pattern"`
	Order         string          `json:"order"`
	FirstDay      bool            `json:"first_day"`
	Age           int             `json:"age"`
	Reps          int             `json:"reps"`
	Playlist      []PlaybackItem  `json:"playlist,omitempty"`
}

// Snapshot returns a deep copy of the course state.
func (c *Course) Snapshot() Snapshot {
	s := Snapshot{
		ID:        c.id,
		Title:     c.title,
		Languages: make([]string, len(c.languages)),
		Books:     append([]string{}, c.books...),
		Schedule: ScheduleSnapshot{
			ReviewPattern:   copyInts(c.schedule.reviewPattern),
			SentencesPerDay: c.schedule.numSentences,
			Cursor:          c.schedule.cursor,
			Order:           c.schedule.order,
			ReviewOrder:     c.schedule.reviewOrder,
		},
		PastDays:    make([]DaySnapshot, 0, len(c.pastDays)),
		NumReps:     c.numReps,
		PauseMillis: c.pause.Milliseconds(),
		CreatedAt:   c.createdAt,
		UpdatedAt:   c.updatedAt,
		Version:     c.version,
	}
	for i, l := range c.languages {
		s.Languages[i] = string(l)
	}
	if c.currentDay != nil {
		d := c.currentDay.snapshot()
		s.CurrentDay = &d
	}
	for _, d := range c.pastDays {
		s.PastDays = append(s.PastDays, d.snapshot())
	}
	return s
}

func (d *Day) snapshot() DaySnapshot {
	out := DaySnapshot{
		ID:          d.id,
		Sets:        make([]SetSnapshot, len(d.sets)),
		Completed:   d.completed,
		PauseMillis: d.pause.Milliseconds(),
		Reviewed:    d.reviewed,
		CreatedAt:   d.createdAt,
	}
	for i, s := range d.sets {
		out.Sets[i] = SetSnapshot{
			ID:            s.id,
			Groups:        s.Groups(),
			ReviewPattern: copyInts(s.reviewPattern),
			Order:         s.order,
			FirstDay:      s.firstDay,
			Age:           s.age,
			Reps:          s.reps,
			Playlist:      s.Playlist(),
		}
	}
	return out
}

// Restore rebuilds a course from a snapshot. Playlists are reassembled from the
// stored groups, so no sentence store is needed.
func Restore(s Snapshot) (*Course, error) {
	c := &Course{
		id:        s.ID,
		title:     s.Title,
		languages: make([]content.LanguageID, len(s.Languages)),
		books:     append([]string(nil), s.Books...),
		schedule: Schedule{
			reviewPattern: copyInts(s.Schedule.ReviewPattern),
			numSentences:  s.Schedule.SentencesPerDay,
			cursor:        s.Schedule.Cursor,
			order:         s.Schedule.Order,
			reviewOrder:   s.Schedule.ReviewOrder,
		},
		numReps:   s.NumReps,
		pause:     time.Duration(s.PauseMillis) * time.Millisecond,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		version:   s.Version,
	}
	if s.ID == "" {
		return nil, shared.NewDomainError("course", "Restore", shared.ErrInvalidID, "snapshot has no id")
	}
	for i, l := range s.Languages {
		c.languages[i] = content.LanguageID(l)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	if s.CurrentDay != nil {
		c.currentDay = restoreDay(*s.CurrentDay, c.languages)
	}
	for _, d := range s.PastDays {
		c.pastDays = append(c.pastDays, restoreDay(d, c.languages))
	}
	return c, nil
}

func restoreDay(s DaySnapshot, languages []content.LanguageID) *Day {
	d := &Day{
		id:        s.ID,
		sets:      make([]SentenceSet, len(s.Sets)),
		completed: s.Completed,
		pause:     time.Duration(s.PauseMillis) * time.Millisecond,
		createdAt: s.CreatedAt,
	}
	for i, ss := range s.Sets {
		set := SentenceSet{
			id:            ss.ID,
			groups:        make([]SentenceGroup, len(ss.Groups)),
			reviewPattern: copyInts(ss.ReviewPattern),
			order:         ss.Order,
			firstDay:      ss.FirstDay,
			age:           ss.Age,
		}
		for j, g := range ss.Groups {
			set.groups[j] = g.clone()
		}
		set.assemble(languages)
		d.sets[i] = set
	}
	d.reviewed = min(max(s.Reviewed, 0), d.TotalReviews())
	return d
}
