package redis

import (
	"context"
	"errors"
	"time"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/circuitbreaker"
)

// CourseCache implements course.Cache by storing course snapshots as JSON.
type CourseCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
}

// CourseCacheOption configures a CourseCache.
type CourseCacheOption func(*CourseCache)

// WithBreaker guards reads and writes with cb. While the circuit is open the
// cache answers with circuitbreaker.ErrCircuitOpen without touching Redis.
// Invalidations always reach Redis.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) CourseCacheOption {
	return func(c *CourseCache) { c.breaker = cb }
}

// NewCourseCache creates a new CourseCache.
func NewCourseCache(cache *Cache, opts ...CourseCacheOption) *CourseCache {
	c := &CourseCache{cache: cache}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCourseCacheBreaker returns a breaker that treats cache misses as answers.
func NewCourseCacheBreaker(onStateChange func(name string, from, to circuitbreaker.State)) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.CacheBreaker(func(err error) bool {
		return errors.Is(err, shared.ErrCourseNotFound)
	}, onStateChange)
}

// Get returns a cached course. A miss is reported as ErrCourseNotFound.
func (c *CourseCache) Get(ctx context.Context, id string) (*course.Course, error) {
	var snap course.Snapshot
	err := c.guard(ctx, func(ctx context.Context) error {
		if err := c.cache.Get(ctx, CourseKey(id), &snap); err != nil {
			if errors.Is(err, ErrCacheMiss) {
				return shared.ErrCourseNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course.Restore(snap)
}

// Set caches a course unless a newer version of it is already cached or it was
// invalidated within TTLTombstone.
func (c *CourseCache) Set(ctx context.Context, crs *course.Course, ttl time.Duration) error {
	if crs == nil {
		return nil
	}
	if ttl == 0 {
		ttl = TTLCourseCache
	}
	return c.guard(ctx, func(ctx context.Context) error {
		_, err := c.cache.SetIfNewer(ctx, CourseKey(crs.ID()), crs.Snapshot(), int64(crs.Version()), ttl)
		return err
	})
}

// Invalidate drops a cached course and keeps older copies out for TTLTombstone.
func (c *CourseCache) Invalidate(ctx context.Context, id string) error {
	return c.cache.Tombstone(ctx, CourseKey(id), TTLTombstone)
}

func (c *CourseCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}
