// Package command contains the write operations on courses and content.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
	"github.com/natibo/natibo/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Locker gives one writer at a time access to a key. Implementations live in
// infrastructure/persistence (memory and redis).
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Deps holds the collaborators shared by the course command handlers.
// Cache, Locker and Events are optional.
type Deps struct {
	Courses  course.Repository
	Content  content.Repository
	Cache    course.Cache
	Locker   Locker
	Events   shared.EventPublisher
	Logger   *logger.Logger
	CacheTTL time.Duration
}

func (d Deps) log() *logger.Logger {
	if d.Logger == nil {
		return logger.Nop()
	}
	return d.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE WRITER
// ══════════════════════════════════════════════════════════════════════════════

// errUnchanged tells the writer that a mutation left the course as it was.
var errUnchanged = errors.New("course unchanged")

// mutation changes a loaded course and returns the events to publish once the
// change is stored.
type mutation func(ctx context.Context, c *course.Course) ([]shared.Event, error)

// courseWriter runs every change of a course as lock, load, mutate, store. A lost
// optimistic-lock race re-runs the whole sequence on fresh state.
type courseWriter struct {
	deps    Deps
	retrier *retry.Retrier
}

func newCourseWriter(deps Deps) courseWriter {
	return courseWriter{
		deps:    deps,
		retrier: retry.ConflictRetrier(shared.IsConflict),
	}
}

func lockKey(courseID string) string {
	return "course:" + courseID
}

func (w courseWriter) mutate(ctx context.Context, courseID, op string, fn mutation) (*course.Course, error) {
	log := w.deps.log().With(logger.CourseID(courseID), logger.Operation(op))
	start := time.Now()

	var (
		saved   *course.Course
		events  []shared.Event
		changed bool
	)
	err := w.retrier.Do(ctx, func(ctx context.Context) error {
		if w.deps.Locker != nil {
			release, err := w.deps.Locker.Acquire(ctx, lockKey(courseID))
			if err != nil {
				return err
			}
			defer release()
		}

		c, err := w.deps.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		evts, err := fn(ctx, c)
		if errors.Is(err, errUnchanged) {
			saved, events, changed = c, nil, false
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.deps.Courses.Update(ctx, c); err != nil {
			if errors.Is(err, shared.ErrStaleCourse) {
				log.Warn("lost update race, retrying")
			}
			return err
		}
		saved, events, changed = c, evts, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return saved, nil
	}
	w.refreshCache(ctx, saved)
	w.publish(events)
	log.Debug("course updated", logger.Latency(time.Since(start)), logger.Int("version", saved.Version()))
	return saved, nil
}

func (w courseWriter) refreshCache(ctx context.Context, c *course.Course) {
	if w.deps.Cache == nil {
		return
	}
	if err := w.deps.Cache.Set(ctx, c, w.deps.CacheTTL); err != nil {
		w.deps.log().Warn("cache refresh failed", logger.CourseID(c.ID()), logger.Err(err))
		_ = w.deps.Cache.Invalidate(ctx, c.ID())
	}
}

func (w courseWriter) publish(events []shared.Event) {
	if w.deps.Events == nil {
		return
	}
	for _, e := range events {
		if err := w.deps.Events.Publish(e); err != nil {
			w.deps.log().Warn("publish event failed",
				logger.String("event_type", string(e.EventType())),
				logger.CourseID(e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}

// loadStore loads the packs a course reads from.
func loadStore(ctx context.Context, repo content.Repository, c *course.Course) (*content.Catalog, error) {
	return repo.LoadCatalog(ctx, c.Languages(), c.Books())
}
