// Package course contains the scheduling engine: a course walks a cursor through
// aligned sentence packs, introduces a batch of new sentences per day and carries
// earlier batches forward as reviews.
//
// A Course is not safe for concurrent use. Callers serialize mutations per course;
// the application layer does that with a per-course lock.
package course

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course owns a schedule, the current day and the archive of completed days.
type Course struct {
	id        string
	title     string
	languages []content.LanguageID
	books     []string
	schedule  Schedule

	currentDay *Day
	pastDays   []*Day

	numReps int
	pause   time.Duration

	createdAt time.Time
	updatedAt time.Time
	version   int
}

// Params holds the settings for a new course.
type Params struct {
	ID              string
	Title           string
	Languages       []content.LanguageID
	Books           []string
	SentencesPerDay int
	ReviewPattern   []int

	// Order overrides the order derived from Chorus.
	Order  string
	Chorus Chorus

	// StartingSentence is the 1-based index of the first sentence to study; 0 starts
	// at the beginning.
	StartingSentence int
	Pause            time.Duration
}

// New validates the params and creates a course without a current day.
func New(p Params) (*Course, error) {
	if len(p.Languages) == 0 {
		return nil, shared.ErrNoLanguages
	}
	for _, l := range p.Languages {
		if !l.IsValid() {
			return nil, shared.WrapError("course", "New", shared.ErrMisconfigured, string(l), shared.ErrInvalidLanguage)
		}
	}
	if len(p.Books) == 0 {
		return nil, shared.ErrNoPacks
	}
	if !p.Chorus.IsValid() {
		return nil, shared.NewDomainError("course", "New", shared.ErrMisconfigured, "unknown chorus mode")
	}
	if p.Pause < 0 || p.Pause > MaxPause {
		return nil, shared.ErrPauseOutOfRange
	}

	order := p.Order
	var reviewOrder string
	if order == "" {
		order = BuildOrder(len(p.Languages), p.Chorus)
		if p.Chorus == ChorusNew {
			// Only the day a set is introduced is played with chorus.
			order = BuildOrder(len(p.Languages), ChorusAll)
			reviewOrder = BuildOrder(len(p.Languages), ChorusNone)
		}
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = DefaultTitle(p.Languages)
	}

	now := time.Now().UTC()
	c := &Course{
		id:        id,
		title:     title,
		languages: append([]content.LanguageID(nil), p.Languages...),
		books:     append([]string(nil), p.Books...),
		schedule:  NewSchedule(p.SentencesPerDay, p.ReviewPattern, order).WithReviewOrder(reviewOrder),
		pause:     p.Pause,
		createdAt: now,
		updatedAt: now,
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	if p.StartingSentence > 0 {
		if err := c.SetStartingIndex(p.StartingSentence); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultTitle joins the language codes, e.g. "EN → ES".
func DefaultTitle(languages []content.LanguageID) string {
	parts := make([]string, len(languages))
	for i, l := range languages {
		parts[i] = string(l)
	}
	return strings.Join(parts, " → ")
}

func (c *Course) validate() error {
	if len(c.languages) == 0 {
		return shared.ErrNoLanguages
	}
	if len(c.books) == 0 {
		return shared.ErrNoPacks
	}
	return c.schedule.validate(len(c.languages))
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// PrepareNextDay archives a completed current day, carries its sets forward with the
// newest first, claims the next batch of sentences and builds the new day. Sets with
// nothing left to study are pruned. A day without sets means the course is finished.
//
// Configuration errors are returned before anything changes; on success every change
// becomes visible at once.
func (c *Course) PrepareNextDay(store content.Store) error {
	if err := c.validate(); err != nil {
		return err
	}
	if store == nil {
		return shared.NewDomainError("course", "PrepareNextDay", shared.ErrMisconfigured, "sentence store is required")
	}

	schedule := c.schedule

	var sets []SentenceSet
	if c.currentDay != nil {
		carried := make([]SentenceSet, 0, len(c.currentDay.sets)+1)
		for _, s := range c.currentDay.sets {
			carried = append(carried, s.carryForward(schedule.ReviewOrder()))
		}
		sets = prioritizeNewest(carried)
	}

	start, n := schedule.NextBatch(schedule.NumSentences())
	sets = append(sets, newSentenceSet(c.collectGroups(store, start, n), schedule.ReviewPattern(), schedule.Order()))

	day := newDay(sets, c.pause)
	day.materialize(store, c.languages)

	if c.currentDay != nil && c.currentDay.completed {
		c.pastDays = append(c.pastDays, c.currentDay)
	}
	c.schedule = schedule
	c.currentDay = day
	c.touch()
	return nil
}

// collectGroups pages through the books, in order, for the positions [start, start+n).
// A book spans as many positions as its longest pack across the course languages, so
// every language draws the same (book, offset) at a position. A position past the end
// of a book continues in the next book; running out of books yields fewer groups. When
// aligned packs differ in length, the languages whose pack is shorter are missing from
// the groups past its end.
func (c *Course) collectGroups(store content.Store, start, n int) []SentenceGroup {
	groups := make([]SentenceGroup, 0, n)
	offset := start

	for _, book := range c.books {
		if len(groups) == n {
			break
		}

		packs := make([]*content.Pack, len(c.languages))
		span := 0
		for li, lang := range c.languages {
			if pack, ok := store.Pack(lang, book); ok {
				packs[li] = pack
				span = max(span, pack.SentenceCount())
			}
		}
		if offset >= span {
			offset -= span
			continue
		}

		for ; offset < span && len(groups) < n; offset++ {
			g := SentenceGroup{Position: start + len(groups) + 1}
			for li, lang := range c.languages {
				if packs[li] != nil && offset < packs[li].SentenceCount() {
					g.Entries = append(g.Entries, GroupEntry{Language: lang, Book: book, Offset: offset})
				}
			}
			groups = append(groups, g)
		}
		offset = 0
	}
	return groups
}

// RecordReviews marks n playback items of the current day as reviewed and returns
// how many were recorded.
func (c *Course) RecordReviews(n int) (int, error) {
	if n < 0 {
		return 0, shared.ErrInvalidReps
	}
	if c.currentDay == nil {
		return 0, shared.ErrNoCurrentDay
	}
	if c.currentDay.completed {
		return 0, shared.ErrDayCompleted
	}
	recorded := c.currentDay.recordReviews(n)
	c.touch()
	return recorded, nil
}

// CompleteDay marks the current day completed and folds its reviews into the
// repetition counter.
func (c *Course) CompleteDay() error {
	if c.currentDay == nil {
		return shared.ErrNoCurrentDay
	}
	if c.currentDay.completed {
		return shared.ErrDayCompleted
	}
	c.numReps += c.currentDay.reviewed
	c.currentDay.complete()
	c.touch()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

// SetStartingSentence moves the cursor so that the next batch starts at s.
func (c *Course) SetStartingSentence(s content.Sentence) error {
	return c.SetStartingIndex(s.Index)
}

// SetStartingIndex moves the cursor so that the next batch starts at the 1-based index.
func (c *Course) SetStartingIndex(index int) error {
	if index < 1 {
		return shared.ErrInvalidSentence
	}
	if err := c.schedule.SetCursor(index - 1); err != nil {
		return err
	}
	c.touch()
	return nil
}

// SetPause sets the pause for new days and the current one.
func (c *Course) SetPause(d time.Duration) error {
	if d < 0 || d > MaxPause {
		return shared.ErrPauseOutOfRange
	}
	c.pause = d
	if c.currentDay != nil {
		c.currentDay.pause = d
	}
	c.touch()
	return nil
}

// AddReps adds manually recorded repetitions.
func (c *Course) AddReps(n int) error {
	if n < 0 {
		return shared.ErrInvalidReps
	}
	c.numReps += n
	c.touch()
	return nil
}

func (c *Course) touch() {
	c.updatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCESSORS
// ══════════════════════════════════════════════════════════════════════════════

// ID returns the course identifier.
func (c *Course) ID() string { return c.id }

// Title returns the course title.
func (c *Course) Title() string { return c.title }

// Languages returns the course languages in group order.
func (c *Course) Languages() []content.LanguageID {
	return append([]content.LanguageID(nil), c.languages...)
}

// Books returns the pack books in paging order.
func (c *Course) Books() []string {
	return append([]string(nil), c.books...)
}

// Schedule returns a copy of the schedule.
func (c *Course) Schedule() Schedule {
	s := c.schedule
	s.reviewPattern = copyInts(c.schedule.reviewPattern)
	return s
}

// CurrentDay returns the current day, or nil before the first PrepareNextDay.
// The returned day must not be modified.
func (c *Course) CurrentDay() *Day { return c.currentDay }

// PastDays returns the archived days, oldest first.
func (c *Course) PastDays() []*Day {
	return append([]*Day(nil), c.pastDays...)
}

// DayNumber returns the 1-based number of the current day, 0 before the first one.
func (c *Course) DayNumber() int {
	if c.currentDay == nil {
		return 0
	}
	return len(c.pastDays) + 1
}

// Pause returns the pause applied to new days.
func (c *Course) Pause() time.Duration { return c.pause }

// IsFinished reports whether the last prepared day had nothing to study.
func (c *Course) IsFinished() bool {
	return c.currentDay != nil && c.currentDay.IsEmpty()
}

// CreatedAt returns the creation time.
func (c *Course) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last modification time.
func (c *Course) UpdatedAt() time.Time { return c.updatedAt }

// Version returns the persisted version used for optimistic locking.
func (c *Course) Version() int { return c.version }

// MarkPersisted records the version written by a repository.
func (c *Course) MarkPersisted(version int) { c.version = version }
