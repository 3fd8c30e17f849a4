package command

import (
	"context"
	"fmt"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREPARE NEXT DAY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// PrepareNextDayCommand advances a course to its next study day.
type PrepareNextDayCommand struct {
	CourseID string

	// OnlyIfCompleted skips courses whose current day is still in progress.
	// The background job sets it so it never replaces a day being studied.
	OnlyIfCompleted bool
}

// PrepareNextDayResult is returned by PrepareNextDayHandler.
type PrepareNextDayResult struct {
	Course   *course.Course
	Finished bool
	Skipped  bool
}

// PrepareNextDayHandler prepares study days.
type PrepareNextDayHandler struct {
	deps   Deps
	writer courseWriter
}

// NewPrepareNextDayHandler creates a PrepareNextDayHandler.
func NewPrepareNextDayHandler(deps Deps) *PrepareNextDayHandler {
	return &PrepareNextDayHandler{deps: deps, writer: newCourseWriter(deps)}
}

// Handle loads the course content and prepares the next day.
func (h *PrepareNextDayHandler) Handle(ctx context.Context, cmd PrepareNextDayCommand) (*PrepareNextDayResult, error) {
	if cmd.CourseID == "" {
		return nil, shared.ErrInvalidID
	}

	skipped := false
	c, err := h.writer.mutate(ctx, cmd.CourseID, "prepare_next_day", func(ctx context.Context, c *course.Course) ([]shared.Event, error) {
		skipped = false
		if cmd.OnlyIfCompleted && !c.Advanceable() {
			skipped = true
			return nil, errUnchanged
		}

		store, err := loadStore(ctx, h.deps.Content, c)
		if err != nil {
			return nil, fmt.Errorf("prepare_next_day: load content: %w", err)
		}
		if err := c.PrepareNextDay(store); err != nil {
			return nil, err
		}
		return []shared.Event{dayEvent(c)}, nil
	})
	if err != nil {
		return nil, err
	}

	if !skipped {
		day := c.CurrentDay()
		h.deps.log().Info("day prepared",
			logger.CourseID(c.ID()),
			logger.DayID(day.ID()),
			logger.DayNumber(c.DayNumber()),
			logger.Cursor(c.Schedule().Cursor()),
			logger.Int("sets", day.Len()),
			logger.Bool("finished", c.IsFinished()),
		)
	}
	return &PrepareNextDayResult{Course: c, Finished: c.IsFinished(), Skipped: skipped}, nil
}
