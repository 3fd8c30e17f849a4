package command

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/internal/infrastructure/persistence/memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type mapCache struct {
	mu          sync.Mutex
	courses     map[string]*course.Course
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{courses: make(map[string]*course.Course)}
}

func (m *mapCache) Get(_ context.Context, id string) (*course.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return c, nil
}

func (m *mapCache) Set(_ context.Context, c *course.Course, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID()] = c
	return nil
}

func (m *mapCache) Invalidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, id)
	m.invalidated = append(m.invalidated, id)
	return nil
}

// staleOnce fails the first Update as if another writer got there first.
type staleOnce struct {
	course.Repository
	mu      sync.Mutex
	updates int
}

func (s *staleOnce) Update(ctx context.Context, c *course.Course) error {
	s.mu.Lock()
	s.updates++
	first := s.updates == 1
	s.mu.Unlock()
	if first {
		return shared.ErrStaleCourse
	}
	return s.Repository.Update(ctx, c)
}

func testPack(t *testing.T, lang, book string, n int) *content.Pack {
	t.Helper()
	sentences := make([]content.Sentence, n)
	for i := range sentences {
		sentences[i] = content.Sentence{Index: i + 1, Text: fmt.Sprintf("%s %s %d", lang, book, i+1)}
	}
	p, err := content.NewPack(lang+":"+book, content.LanguageID(lang), book, sentences)
	require.NoError(t, err)
	return p
}

type fixture struct {
	deps    Deps
	courses *memory.CourseRepository
	content *memory.ContentRepository
	cache   *mapCache
	events  *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := content.NewCatalog()
	catalog.AddLanguage(content.Language{ID: "EN", Name: "English"})
	catalog.AddLanguage(content.Language{ID: "ES", Name: "Spanish"})
	catalog.AddPack(testPack(t, "EN", "A", 6))
	catalog.AddPack(testPack(t, "ES", "A", 6))

	f := &fixture{
		courses: memory.NewCourseRepository(),
		content: memory.NewContentRepository(catalog),
		cache:   newMapCache(),
		events:  &recordingPublisher{},
	}
	f.deps = Deps{
		Courses: f.courses,
		Content: f.content,
		Cache:   f.cache,
		Locker:  memory.NewLocker(),
		Events:  f.events,
	}
	return f
}

func (f *fixture) createCourse(t *testing.T, prepare bool) *course.Course {
	t.Helper()
	pattern := "1/1"
	res, err := NewCreateCourseHandler(f.deps, Defaults{}).Handle(context.Background(), CreateCourseCommand{
		Title:           "English to Spanish",
		Languages:       []string{"EN", "ES"},
		Books:           []string{"A"},
		SentencesPerDay: 2,
		ReviewPattern:   &pattern,
		PrepareFirstDay: prepare,
	})
	require.NoError(t, err)
	return res.Course
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateCourse_StoresCachesAndPublishes(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, true)

	assert.Equal(t, 1, c.Version())
	assert.Equal(t, 1, c.DayNumber())
	require.NotNil(t, c.CurrentDay())
	assert.Equal(t, 2, c.Schedule().Cursor())

	stored, err := f.courses.GetByID(context.Background(), c.ID())
	require.NoError(t, err)
	assert.Equal(t, c.Title(), stored.Title())

	_, err = f.cache.Get(context.Background(), c.ID())
	assert.NoError(t, err)

	assert.Equal(t, []shared.EventType{shared.EventCourseCreated, shared.EventDayPrepared}, f.events.types())
}

func TestCreateCourse_WithoutFirstDay(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, false)

	assert.Nil(t, c.CurrentDay())
	assert.Equal(t, []shared.EventType{shared.EventCourseCreated}, f.events.types())
}

func TestCreateCourse_RejectsMissingContent(t *testing.T) {
	f := newFixture(t)
	h := NewCreateCourseHandler(f.deps, Defaults{})

	_, err := h.Handle(context.Background(), CreateCourseCommand{Languages: []string{"EN", "FR"}, Books: []string{"A"}})
	assert.ErrorIs(t, err, shared.ErrLanguageNotFound)
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(context.Background(), CreateCourseCommand{Languages: []string{"EN"}, Books: []string{"B"}})
	assert.ErrorIs(t, err, shared.ErrPackNotFound)

	_, err = h.Handle(context.Background(), CreateCourseCommand{Books: []string{"A"}})
	assert.ErrorIs(t, err, shared.ErrNoLanguages)

	_, err = h.Handle(context.Background(), CreateCourseCommand{Languages: []string{"EN"}, Books: []string{"A"}, StartingSentence: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidSentence)

	assert.Empty(t, f.events.types())
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

func TestPrepareNextDay_SkipsDayInProgress(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, true)

	res, err := NewPrepareNextDayHandler(f.deps).Handle(context.Background(), PrepareNextDayCommand{
		CourseID:        c.ID(),
		OnlyIfCompleted: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, res.Course.Version())
	assert.Equal(t, 1, res.Course.DayNumber())
}

func TestDayLifecycle_RecordCompleteAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCourse(t, true)
	total := c.CurrentDay().TotalReviews()
	require.Positive(t, total)

	rec, err := NewRecordReviewsHandler(f.deps).Handle(ctx, RecordReviewsCommand{CourseID: c.ID(), Count: total + 5})
	require.NoError(t, err)
	assert.Equal(t, total, rec.Recorded)
	assert.Equal(t, 0, rec.Course.CurrentDay().ReviewsLeft())
	assert.Equal(t, 2, rec.Course.Version())

	// Nothing left to record, so the course is not written again.
	rec, err = NewRecordReviewsHandler(f.deps).Handle(ctx, RecordReviewsCommand{CourseID: c.ID(), Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Recorded)
	assert.Equal(t, 2, rec.Course.Version())

	done, err := NewCompleteDayHandler(f.deps).Handle(ctx, CompleteDayCommand{CourseID: c.ID()})
	require.NoError(t, err)
	assert.True(t, done.Advanceable())
	assert.Equal(t, total, done.TotalReps())

	_, err = NewCompleteDayHandler(f.deps).Handle(ctx, CompleteDayCommand{CourseID: c.ID()})
	assert.ErrorIs(t, err, shared.ErrDayCompleted)

	ids, err := f.courses.ListAdvanceable(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID()}, ids)

	next, err := NewPrepareNextDayHandler(f.deps).Handle(ctx, PrepareNextDayCommand{CourseID: c.ID(), OnlyIfCompleted: true})
	require.NoError(t, err)
	assert.False(t, next.Skipped)
	assert.Equal(t, 2, next.Course.DayNumber())
	assert.Equal(t, 4, next.Course.Schedule().Cursor())
	assert.Equal(t, 2, next.Course.NumSentencesSeen())

	cached, err := f.cache.Get(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, next.Course.Version(), cached.Version())

	assert.Equal(t, []shared.EventType{
		shared.EventCourseCreated,
		shared.EventDayPrepared,
		shared.EventDayCompleted,
		shared.EventDayPrepared,
	}, f.events.types())
}

func TestPrepareNextDay_RetriesStaleWrite(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, false)

	stale := &staleOnce{Repository: f.courses}
	deps := f.deps
	deps.Courses = stale

	res, err := NewPrepareNextDayHandler(deps).Handle(context.Background(), PrepareNextDayCommand{CourseID: c.ID()})
	require.NoError(t, err)
	assert.Equal(t, 2, stale.updates)
	assert.Equal(t, 1, res.Course.DayNumber())
	assert.Equal(t, 2, res.Course.Version())
}

func TestPrepareNextDay_UnknownCourse(t *testing.T) {
	f := newFixture(t)
	_, err := NewPrepareNextDayHandler(f.deps).Handle(context.Background(), PrepareNextDayCommand{CourseID: "missing"})
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)

	_, err = NewPrepareNextDayHandler(f.deps).Handle(context.Background(), PrepareNextDayCommand{})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestRecordReviews_RequiresCurrentDay(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, false)

	_, err := NewRecordReviewsHandler(f.deps).Handle(context.Background(), RecordReviewsCommand{CourseID: c.ID(), Count: 1})
	assert.ErrorIs(t, err, shared.ErrNoCurrentDay)

	_, err = NewRecordReviewsHandler(f.deps).Handle(context.Background(), RecordReviewsCommand{CourseID: c.ID(), Count: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidReps)
}

func TestAddReps(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, false)

	got, err := NewAddRepsHandler(f.deps).Handle(context.Background(), AddRepsCommand{CourseID: c.ID(), Reps: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, got.TotalReps())
	assert.Contains(t, f.events.types(), shared.EventRepsAdded)

	_, err = NewAddRepsHandler(f.deps).Handle(context.Background(), AddRepsCommand{CourseID: c.ID(), Reps: -2})
	assert.ErrorIs(t, err, shared.ErrInvalidReps)
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

func TestSetStartingSentence_MovesCursor(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, false)

	got, err := NewSetStartingSentenceHandler(f.deps).Handle(context.Background(), SetStartingSentenceCommand{
		CourseID:      c.ID(),
		SentenceIndex: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Schedule().Cursor())
	assert.Contains(t, f.events.types(), shared.EventCursorMoved)

	_, err = NewSetStartingSentenceHandler(f.deps).Handle(context.Background(), SetStartingSentenceCommand{CourseID: c.ID()})
	assert.ErrorIs(t, err, shared.ErrInvalidSentence)
}

func TestSetPause_SkipsWriteWhenUnchanged(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, true)
	h := NewSetPauseHandler(f.deps)

	got, err := h.Handle(context.Background(), SetPauseCommand{CourseID: c.ID(), Pause: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, got.Pause())
	assert.Equal(t, 1500*time.Millisecond, got.CurrentDay().Pause())
	assert.Equal(t, 2, got.Version())

	got, err = h.Handle(context.Background(), SetPauseCommand{CourseID: c.ID(), Pause: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version())

	_, err = h.Handle(context.Background(), SetPauseCommand{CourseID: c.ID(), Pause: -time.Second})
	assert.Error(t, err)
}

func TestDeleteCourse(t *testing.T) {
	f := newFixture(t)
	c := f.createCourse(t, false)
	h := NewDeleteCourseHandler(f.deps)

	require.NoError(t, h.Handle(context.Background(), c.ID()))
	_, err := f.courses.GetByID(context.Background(), c.ID())
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
	assert.Contains(t, f.cache.invalidated, c.ID())

	assert.ErrorIs(t, h.Handle(context.Background(), c.ID()), shared.ErrCourseNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// SAVE PACK
// ══════════════════════════════════════════════════════════════════════════════

func TestSavePack_CreatesLanguageAndPack(t *testing.T) {
	f := newFixture(t)
	h := NewSavePackHandler(f.content, nil)

	pack, err := h.Handle(context.Background(), SavePackCommand{
		Language:     "DE",
		LanguageName: "German",
		Book:         "A",
		Sentences: []content.Sentence{
			{Index: 2, Text: "Zwei"},
			{Index: 1, Text: "Eins"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "DE:A", pack.ID)
	assert.Equal(t, 2, pack.SentenceCount())

	catalog, err := f.content.LoadCatalog(context.Background(), []content.LanguageID{"DE"}, []string{"A"})
	require.NoError(t, err)
	lang, ok := catalog.Language("DE")
	require.True(t, ok)
	assert.Equal(t, "German", lang.Name)
	stored, ok := catalog.Pack("DE", "A")
	require.True(t, ok)
	first, _ := stored.SentenceAt(0)
	assert.Equal(t, "Eins", first.Text)
}

func TestSavePack_Validation(t *testing.T) {
	f := newFixture(t)
	h := NewSavePackHandler(f.content, nil)
	one := []content.Sentence{{Index: 1, Text: "x"}}

	_, err := h.Handle(context.Background(), SavePackCommand{Language: "E", Book: "A", Sentences: one})
	assert.ErrorIs(t, err, shared.ErrInvalidLanguage)

	_, err = h.Handle(context.Background(), SavePackCommand{Language: "EN", Book: " ", Sentences: one})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), SavePackCommand{Language: "EN", Book: "A"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), SavePackCommand{
		Language:  "EN",
		Book:      "A",
		Sentences: []content.Sentence{{Index: 1}, {Index: 1}},
	})
	assert.True(t, shared.IsValidation(err))
}
