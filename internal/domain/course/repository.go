package course

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores courses.
type Repository interface {
	// Create stores a new course.
	// Returns ErrCourseAlreadyExists if the id is taken.
	Create(ctx context.Context, c *Course) error

	// GetByID returns a course.
	// Returns ErrCourseNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Course, error)

	// Update writes the course if its version still matches the stored one and
	// advances the version. Returns ErrStaleCourse otherwise.
	Update(ctx context.Context, c *Course) error

	// Delete removes a course.
	Delete(ctx context.Context, id string) error

	// List returns courses ordered by creation time.
	List(ctx context.Context, opts ListOptions) ([]*Course, error)

	// ListAdvanceable returns ids of courses whose current day is completed and
	// whose material is not exhausted.
	ListAdvanceable(ctx context.Context, limit int) ([]string, error)
}

// Cache keeps recently used courses close to the API.
//
// Set is called both by writers after a commit and by readers after a load, in
// any order, so it must never replace a cached course with a lower version.
// After Invalidate, Set must refuse the course for a while so a reader that
// loaded it earlier cannot put it back.
type Cache interface {
	Get(ctx context.Context, id string) (*Course, error)
	Set(ctx context.Context, c *Course, ttl time.Duration) error
	Invalidate(ctx context.Context, id string) error
}

// ListOptions controls pagination.
type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize applies defaults.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Advanceable reports whether the scheduler may prepare the next day on its own.
func (c *Course) Advanceable() bool {
	return c.currentDay != nil && c.currentDay.completed && !c.currentDay.IsEmpty()
}
