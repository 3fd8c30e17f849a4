// Package query contains the read operations on courses and content.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseHandler reads courses, cache first.
type GetCourseHandler struct {
	courses  course.Repository
	cache    course.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewGetCourseHandler creates a GetCourseHandler. cache may be nil.
func NewGetCourseHandler(courses course.Repository, cache course.Cache, cacheTTL time.Duration, log *logger.Logger) *GetCourseHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetCourseHandler{courses: courses, cache: cache, cacheTTL: cacheTTL, logger: log}
}

// Handle returns the course.
func (h *GetCourseHandler) Handle(ctx context.Context, courseID string) (*course.Course, error) {
	if courseID == "" {
		return nil, shared.ErrInvalidID
	}

	if h.cache != nil {
		c, err := h.cache.Get(ctx, courseID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, shared.ErrCourseNotFound) {
			h.logger.Warn("course cache read failed", logger.CourseID(courseID), logger.Err(err))
		}
	}

	c, err := h.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, c, h.cacheTTL); err != nil {
			h.logger.Warn("course cache write failed", logger.CourseID(courseID), logger.Err(err))
		}
	}
	return c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressHandler summarizes a course.
type GetProgressHandler struct {
	courses *GetCourseHandler
}

// NewGetProgressHandler creates a GetProgressHandler.
func NewGetProgressHandler(courses *GetCourseHandler) *GetProgressHandler {
	return &GetProgressHandler{courses: courses}
}

// Handle returns the progress of a course.
func (h *GetProgressHandler) Handle(ctx context.Context, courseID string) (course.Progress, error) {
	c, err := h.courses.Handle(ctx, courseID)
	if err != nil {
		return course.Progress{}, err
	}
	return c.Progress(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST COURSES
// ══════════════════════════════════════════════════════════════════════════════

// CourseSummary is a list entry.
type CourseSummary struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Languages []string        `json:"languages"`
	Progress  course.Progress `json:"progress"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListCoursesHandler lists courses.
type ListCoursesHandler struct {
	courses course.Repository
}

// NewListCoursesHandler creates a ListCoursesHandler.
func NewListCoursesHandler(courses course.Repository) *ListCoursesHandler {
	return &ListCoursesHandler{courses: courses}
}

// Handle returns a page of course summaries.
func (h *ListCoursesHandler) Handle(ctx context.Context, opts course.ListOptions) ([]CourseSummary, error) {
	courses, err := h.courses.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		langs := make([]string, 0, len(c.Languages()))
		for _, l := range c.Languages() {
			langs = append(langs, string(l))
		}
		out = append(out, CourseSummary{
			ID:        c.ID(),
			Title:     c.Title(),
			Languages: langs,
			Progress:  c.Progress(),
			UpdatedAt: c.UpdatedAt(),
		})
	}
	return out, nil
}
