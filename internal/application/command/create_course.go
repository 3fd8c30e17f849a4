package command

import (
	"context"
	"fmt"
	"time"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand describes a new course. Zero values fall back to the
// handler's defaults.
type CreateCourseCommand struct {
	Title     string
	Languages []string
	Books     []string

	// SentencesPerDay is the number of new sentences introduced each day.
	SentencesPerDay int

	// ReviewPattern is the user-entered pattern, e.g. "3/2/1".
	ReviewPattern *string

	Chorus           course.Chorus
	Order            string
	StartingSentence int
	Pause            *time.Duration

	// PrepareFirstDay prepares day 1 right away.
	PrepareFirstDay bool
}

// Validate checks the command shape.
func (c CreateCourseCommand) Validate() error {
	if len(c.Languages) == 0 {
		return shared.ErrNoLanguages
	}
	if len(c.Books) == 0 {
		return shared.ErrNoPacks
	}
	if c.SentencesPerDay < 0 {
		return shared.ErrInvalidBatchSize
	}
	if c.StartingSentence < 0 {
		return shared.ErrInvalidSentence
	}
	return nil
}

// Defaults are applied to fields a CreateCourseCommand leaves empty.
type Defaults struct {
	SentencesPerDay int
	ReviewPattern   string
	Pause           time.Duration
}

// CreateCourseResult is returned by CreateCourseHandler.
type CreateCourseResult struct {
	Course     *course.Course
	Misaligned []string
}

// CreateCourseHandler creates courses.
type CreateCourseHandler struct {
	deps     Deps
	defaults Defaults
}

// NewCreateCourseHandler creates a CreateCourseHandler.
func NewCreateCourseHandler(deps Deps, defaults Defaults) *CreateCourseHandler {
	if defaults.SentencesPerDay <= 0 {
		defaults.SentencesPerDay = 10
	}
	return &CreateCourseHandler{deps: deps, defaults: defaults}
}

// Handle validates the course against the stored content and saves it.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CreateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	languages := make([]content.LanguageID, len(cmd.Languages))
	for i, l := range cmd.Languages {
		languages[i] = content.LanguageID(l)
	}

	perDay := cmd.SentencesPerDay
	if perDay == 0 {
		perDay = h.defaults.SentencesPerDay
	}
	patternText := h.defaults.ReviewPattern
	if cmd.ReviewPattern != nil {
		patternText = *cmd.ReviewPattern
	}
	pause := h.defaults.Pause
	if cmd.Pause != nil {
		pause = *cmd.Pause
	}

	c, err := course.New(course.Params{
		Title:            cmd.Title,
		Languages:        languages,
		Books:            cmd.Books,
		SentencesPerDay:  min(perDay, course.MaxSentencesPerDay),
		ReviewPattern:    course.ParseReviewPattern(patternText),
		Order:            cmd.Order,
		Chorus:           cmd.Chorus,
		StartingSentence: cmd.StartingSentence,
		Pause:            pause,
	})
	if err != nil {
		return nil, err
	}

	store, err := h.deps.Content.LoadCatalog(ctx, languages, cmd.Books)
	if err != nil {
		return nil, fmt.Errorf("create_course: load content: %w", err)
	}
	if err := checkContent(store, languages, cmd.Books); err != nil {
		return nil, err
	}

	log := h.deps.log().With(logger.CourseID(c.ID()), logger.Operation("create_course"))
	misaligned := store.Misaligned(languages, cmd.Books)
	if len(misaligned) > 0 {
		log.Warn("packs differ in length between languages", logger.Any("books", misaligned))
	}

	events := []shared.Event{shared.NewCourseCreatedEvent(c.ID(), c.Title(), cmd.Languages)}
	if cmd.PrepareFirstDay {
		if err := c.PrepareNextDay(store); err != nil {
			return nil, err
		}
		events = append(events, dayEvent(c))
	}

	if err := h.deps.Courses.Create(ctx, c); err != nil {
		return nil, err
	}

	w := newCourseWriter(h.deps)
	w.refreshCache(ctx, c)
	w.publish(events)

	log.Info("course created",
		logger.Any("languages", cmd.Languages),
		logger.Any("books", cmd.Books),
		logger.Int("sentences_per_day", perDay),
	)
	return &CreateCourseResult{Course: c, Misaligned: misaligned}, nil
}

// checkContent requires every language to be known and to have at least one of
// the books.
func checkContent(store *content.Catalog, languages []content.LanguageID, books []string) error {
	for _, lang := range languages {
		if _, ok := store.Language(lang); !ok {
			return shared.WrapError("content", "FindLanguage", shared.ErrNotFound, string(lang), shared.ErrLanguageNotFound)
		}
		found := false
		for _, book := range books {
			if _, ok := store.Pack(lang, book); ok {
				found = true
				break
			}
		}
		if !found {
			return shared.WrapError("content", "FindPack", shared.ErrNotFound, string(lang), shared.ErrPackNotFound)
		}
	}
	return nil
}

// dayEvent describes the day a course just prepared.
func dayEvent(c *course.Course) shared.Event {
	day := c.CurrentDay()
	if c.IsFinished() {
		return shared.NewCourseCompletedEvent(c.ID(), c.NumSentencesSeen(), c.TotalReps())
	}
	return shared.NewDayPreparedEvent(c.ID(), day.ID(), c.DayNumber(),
		day.NewSentenceCount(), day.ReviewSetCount(), c.Schedule().Cursor())
}
