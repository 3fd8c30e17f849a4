package query

import (
	"context"
	"time"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRENT DAY VIEW
// What the playback collaborator needs to play a day.
// ══════════════════════════════════════════════════════════════════════════════

// DayView is the presentation of a study day.
type DayView struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	DayNumber    int       `json:"day_number"`
	Completed    bool      `json:"completed"`
	Finished     bool      `json:"finished"`
	NewSentences int       `json:"new_sentences"`
	ReviewSets   int       `json:"review_sets"`
	TotalReviews int       `json:"total_reviews"`
	ReviewsLeft  int       `json:"reviews_left"`
	PauseMillis  int64     `json:"pause_millis"`
	CreatedAt    time.Time `json:"created_at"`
	Sets         []SetView `json:"sets"`
}

// SetView is the presentation of a sentence set.
type SetView struct {
	ID        string                `json:"id"`
	FirstDay  bool                  `json:"first_day"`
	Age       int                   `json:"age"`
	Reps      int                   `json:"reps"`
	Order     string                `json:"order"`
	Positions []int                 `json:"positions"`
	Playlist  []course.PlaybackItem `json:"playlist"`
}

// NewDayView builds the view of the current day of c.
func NewDayView(c *course.Course) (DayView, error) {
	day := c.CurrentDay()
	if day == nil {
		return DayView{}, shared.ErrNoCurrentDay
	}

	v := DayView{
		ID:           day.ID(),
		CourseID:     c.ID(),
		DayNumber:    c.DayNumber(),
		Completed:    day.IsCompleted(),
		Finished:     c.IsFinished(),
		NewSentences: day.NewSentenceCount(),
		ReviewSets:   day.ReviewSetCount(),
		TotalReviews: day.TotalReviews(),
		ReviewsLeft:  day.ReviewsLeft(),
		PauseMillis:  day.Pause().Milliseconds(),
		CreatedAt:    day.CreatedAt(),
		Sets:         make([]SetView, 0, day.Len()),
	}
	for _, s := range day.Sets() {
		groups := s.Groups()
		positions := make([]int, len(groups))
		for i, g := range groups {
			positions[i] = g.Position
		}
		v.Sets = append(v.Sets, SetView{
			ID:        s.ID(),
			FirstDay:  s.FirstDay(),
			Age:       s.Age(),
			Reps:      s.Reps(),
			Order:     s.Order(),
			Positions: positions,
			Playlist:  s.Playlist(),
		})
	}
	return v, nil
}

// GetCurrentDayHandler returns the day to study.
type GetCurrentDayHandler struct {
	courses *GetCourseHandler
}

// NewGetCurrentDayHandler creates a GetCurrentDayHandler.
func NewGetCurrentDayHandler(courses *GetCourseHandler) *GetCurrentDayHandler {
	return &GetCurrentDayHandler{courses: courses}
}

// Handle returns the current day of a course.
func (h *GetCurrentDayHandler) Handle(ctx context.Context, courseID string) (DayView, error) {
	c, err := h.courses.Handle(ctx, courseID)
	if err != nil {
		return DayView{}, err
	}
	return NewDayView(c)
}
