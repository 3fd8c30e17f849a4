package command

import (
	"context"
	"time"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET STARTING SENTENCE
// ══════════════════════════════════════════════════════════════════════════════

// SetStartingSentenceCommand makes the next day start at a 1-based sentence index.
type SetStartingSentenceCommand struct {
	CourseID      string
	SentenceIndex int
}

// SetStartingSentenceHandler moves the cursor of a course.
type SetStartingSentenceHandler struct {
	writer courseWriter
}

// NewSetStartingSentenceHandler creates a SetStartingSentenceHandler.
func NewSetStartingSentenceHandler(deps Deps) *SetStartingSentenceHandler {
	return &SetStartingSentenceHandler{writer: newCourseWriter(deps)}
}

// Handle moves the cursor.
func (h *SetStartingSentenceHandler) Handle(ctx context.Context, cmd SetStartingSentenceCommand) (*course.Course, error) {
	if cmd.CourseID == "" {
		return nil, shared.ErrInvalidID
	}
	if cmd.SentenceIndex < 1 {
		return nil, shared.ErrInvalidSentence
	}

	return h.writer.mutate(ctx, cmd.CourseID, "set_starting_sentence", func(_ context.Context, c *course.Course) ([]shared.Event, error) {
		from := c.Schedule().Cursor()
		if err := c.SetStartingIndex(cmd.SentenceIndex); err != nil {
			return nil, err
		}
		return []shared.Event{shared.NewCursorMovedEvent(c.ID(), from, c.Schedule().Cursor())}, nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SET PAUSE
// ══════════════════════════════════════════════════════════════════════════════

// SetPauseCommand sets the pause played between sentences.
type SetPauseCommand struct {
	CourseID string
	Pause    time.Duration
}

// SetPauseHandler updates the pause of a course.
type SetPauseHandler struct {
	writer courseWriter
}

// NewSetPauseHandler creates a SetPauseHandler.
func NewSetPauseHandler(deps Deps) *SetPauseHandler {
	return &SetPauseHandler{writer: newCourseWriter(deps)}
}

// Handle sets the pause.
func (h *SetPauseHandler) Handle(ctx context.Context, cmd SetPauseCommand) (*course.Course, error) {
	if cmd.CourseID == "" {
		return nil, shared.ErrInvalidID
	}

	return h.writer.mutate(ctx, cmd.CourseID, "set_pause", func(_ context.Context, c *course.Course) ([]shared.Event, error) {
		if c.Pause() == cmd.Pause {
			return nil, errUnchanged
		}
		return nil, c.SetPause(cmd.Pause)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE COURSE
// ══════════════════════════════════════════════════════════════════════════════

// DeleteCourseHandler removes courses.
type DeleteCourseHandler struct {
	deps Deps
}

// NewDeleteCourseHandler creates a DeleteCourseHandler.
func NewDeleteCourseHandler(deps Deps) *DeleteCourseHandler {
	return &DeleteCourseHandler{deps: deps}
}

// Handle deletes the course and drops it from the cache.
func (h *DeleteCourseHandler) Handle(ctx context.Context, courseID string) error {
	if courseID == "" {
		return shared.ErrInvalidID
	}
	if h.deps.Locker != nil {
		release, err := h.deps.Locker.Acquire(ctx, lockKey(courseID))
		if err != nil {
			return err
		}
		defer release()
	}

	if err := h.deps.Courses.Delete(ctx, courseID); err != nil {
		return err
	}
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Invalidate(ctx, courseID); err != nil {
			h.deps.log().Warn("cache invalidation failed", logger.CourseID(courseID), logger.Err(err))
		}
	}
	h.deps.log().Info("course deleted", logger.CourseID(courseID))
	return nil
}
