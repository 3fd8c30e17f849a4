package command

import (
	"context"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD REVIEWS
// Playback reports finished items of the current day.
// ══════════════════════════════════════════════════════════════════════════════

// RecordReviewsCommand reports Count finished playback items.
type RecordReviewsCommand struct {
	CourseID string
	Count    int
}

// RecordReviewsResult is returned by RecordReviewsHandler.
type RecordReviewsResult struct {
	Course   *course.Course
	Recorded int
}

// RecordReviewsHandler records reviews.
type RecordReviewsHandler struct {
	writer courseWriter
}

// NewRecordReviewsHandler creates a RecordReviewsHandler.
func NewRecordReviewsHandler(deps Deps) *RecordReviewsHandler {
	return &RecordReviewsHandler{writer: newCourseWriter(deps)}
}

// Handle records the reviews; counts past the end of the day are clamped.
func (h *RecordReviewsHandler) Handle(ctx context.Context, cmd RecordReviewsCommand) (*RecordReviewsResult, error) {
	if cmd.CourseID == "" {
		return nil, shared.ErrInvalidID
	}
	if cmd.Count < 0 {
		return nil, shared.ErrInvalidReps
	}

	var recorded int
	c, err := h.writer.mutate(ctx, cmd.CourseID, "record_reviews", func(_ context.Context, c *course.Course) ([]shared.Event, error) {
		n, err := c.RecordReviews(cmd.Count)
		if err != nil {
			return nil, err
		}
		recorded = n
		if n == 0 {
			return nil, errUnchanged
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return &RecordReviewsResult{Course: c, Recorded: recorded}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE DAY
// ══════════════════════════════════════════════════════════════════════════════

// CompleteDayCommand marks the current day of a course completed.
type CompleteDayCommand struct {
	CourseID string
}

// CompleteDayHandler completes days.
type CompleteDayHandler struct {
	deps   Deps
	writer courseWriter
}

// NewCompleteDayHandler creates a CompleteDayHandler.
func NewCompleteDayHandler(deps Deps) *CompleteDayHandler {
	return &CompleteDayHandler{deps: deps, writer: newCourseWriter(deps)}
}

// Handle completes the current day. The background job prepares the next one.
func (h *CompleteDayHandler) Handle(ctx context.Context, cmd CompleteDayCommand) (*course.Course, error) {
	if cmd.CourseID == "" {
		return nil, shared.ErrInvalidID
	}

	c, err := h.writer.mutate(ctx, cmd.CourseID, "complete_day", func(_ context.Context, c *course.Course) ([]shared.Event, error) {
		if err := c.CompleteDay(); err != nil {
			return nil, err
		}
		day := c.CurrentDay()
		return []shared.Event{shared.NewDayCompletedEvent(c.ID(), day.ID(), day.TotalReviews()-day.ReviewsLeft())}, nil
	})
	if err != nil {
		return nil, err
	}

	h.deps.log().Info("day completed",
		logger.CourseID(c.ID()),
		logger.DayNumber(c.DayNumber()),
		logger.Int("total_reps", c.TotalReps()),
	)
	return c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADD REPS
// Repetitions done outside the app.
// ══════════════════════════════════════════════════════════════════════════════

// AddRepsCommand adds manually counted repetitions.
type AddRepsCommand struct {
	CourseID string
	Reps     int
}

// AddRepsHandler adds repetitions.
type AddRepsHandler struct {
	writer courseWriter
}

// NewAddRepsHandler creates an AddRepsHandler.
func NewAddRepsHandler(deps Deps) *AddRepsHandler {
	return &AddRepsHandler{writer: newCourseWriter(deps)}
}

// Handle adds the repetitions.
func (h *AddRepsHandler) Handle(ctx context.Context, cmd AddRepsCommand) (*course.Course, error) {
	if cmd.CourseID == "" {
		return nil, shared.ErrInvalidID
	}
	if cmd.Reps < 0 {
		return nil, shared.ErrInvalidReps
	}

	return h.writer.mutate(ctx, cmd.CourseID, "add_reps", func(_ context.Context, c *course.Course) ([]shared.Event, error) {
		if err := c.AddReps(cmd.Reps); err != nil {
			return nil, err
		}
		return []shared.Event{shared.NewRepsAddedEvent(c.ID(), cmd.Reps, c.TotalReps())}, nil
	})
}
