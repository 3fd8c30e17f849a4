// Package memory provides process-local implementations of the course and content
// repositories and of the per-course lock. It backs the server when no database is
// configured and the application tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
)

// CourseRepository implements course.Repository with copied snapshots, so callers
// never share state with the store.
type CourseRepository struct {
	mu      sync.RWMutex
	courses map[string]course.Snapshot
}

// NewCourseRepository creates an empty repository.
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{courses: make(map[string]course.Snapshot)}
}

// Create stores a course with version 1.
func (r *CourseRepository) Create(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[c.ID()]; ok {
		return shared.ErrCourseAlreadyExists
	}
	c.MarkPersisted(1)
	r.courses[c.ID()] = c.Snapshot()
	return nil
}

// GetByID returns a fresh copy of a course.
func (r *CourseRepository) GetByID(_ context.Context, id string) (*course.Course, error) {
	r.mu.RLock()
	snap, ok := r.courses[id]
	r.mu.RUnlock()

	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return course.Restore(snap)
}

// Update stores the course if its version matches and bumps the version.
func (r *CourseRepository) Update(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.courses[c.ID()]
	if !ok {
		return shared.ErrCourseNotFound
	}
	if stored.Version != c.Version() {
		return shared.ErrStaleCourse
	}
	c.MarkPersisted(stored.Version + 1)
	r.courses[c.ID()] = c.Snapshot()
	return nil
}

// Delete removes a course.
func (r *CourseRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[id]; !ok {
		return shared.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

// List returns courses ordered by creation time.
func (r *CourseRepository) List(_ context.Context, opts course.ListOptions) ([]*course.Course, error) {
	opts = opts.Normalize()
	snaps := r.sorted(func(a, b course.Snapshot) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	if opts.Offset >= len(snaps) {
		return []*course.Course{}, nil
	}
	snaps = snaps[opts.Offset:min(len(snaps), opts.Offset+opts.Limit)]

	out := make([]*course.Course, 0, len(snaps))
	for _, s := range snaps {
		c, err := course.Restore(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ListAdvanceable returns ids of courses waiting for their next day, least recently
// updated first.
func (r *CourseRepository) ListAdvanceable(_ context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	snaps := r.sorted(func(a, b course.Snapshot) bool { return a.UpdatedAt.Before(b.UpdatedAt) })

	var ids []string
	for _, s := range snaps {
		if len(ids) == limit {
			break
		}
		if d := s.CurrentDay; d != nil && d.Completed && len(d.Sets) > 0 {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (r *CourseRepository) sorted(less func(a, b course.Snapshot) bool) []course.Snapshot {
	r.mu.RLock()
	out := make([]course.Snapshot, 0, len(r.courses))
	for _, s := range r.courses {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
