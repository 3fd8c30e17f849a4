package memory

import (
	"context"
	"sync"
	"time"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
)

// DefaultTombstoneTTL is how long an invalidated course refuses new writes.
const DefaultTombstoneTTL = 30 * time.Second

type cachedCourse struct {
	snap      course.Snapshot
	gone      bool
	expiresAt time.Time // zero never expires
}

// CourseCache implements course.Cache in process. Writes never replace a newer
// version of a course, and an invalidated course stays out until its tombstone
// expires.
type CourseCache struct {
	mu           sync.Mutex
	entries      map[string]cachedCourse
	tombstoneTTL time.Duration
	now          func() time.Time
}

// NewCourseCache creates an empty cache.
func NewCourseCache() *CourseCache {
	return &CourseCache{
		entries:      make(map[string]cachedCourse),
		tombstoneTTL: DefaultTombstoneTTL,
		now:          time.Now,
	}
}

// Get returns a cached course or ErrCourseNotFound.
func (c *CourseCache) Get(_ context.Context, id string) (*course.Course, error) {
	c.mu.Lock()
	e, ok := c.live(id)
	c.mu.Unlock()

	if !ok || e.gone {
		return nil, shared.ErrCourseNotFound
	}
	return course.Restore(e.snap)
}

// Set caches crs unless a newer version or a tombstone is held. A zero ttl
// keeps the entry until it is replaced.
func (c *CourseCache) Set(_ context.Context, crs *course.Course, ttl time.Duration) error {
	if crs == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.live(crs.ID()); ok && (e.gone || e.snap.Version > crs.Version()) {
		return nil
	}
	c.entries[crs.ID()] = cachedCourse{snap: crs.Snapshot(), expiresAt: c.expiry(ttl)}
	return nil
}

// Invalidate replaces the course with a tombstone.
func (c *CourseCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = cachedCourse{gone: true, expiresAt: c.expiry(c.tombstoneTTL)}
	return nil
}

// live returns the unexpired entry of id, dropping it if it expired.
func (c *CourseCache) live(id string) (cachedCourse, bool) {
	e, ok := c.entries[id]
	if !ok {
		return cachedCourse{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, id)
		return cachedCourse{}, false
	}
	return e, true
}

func (c *CourseCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}
