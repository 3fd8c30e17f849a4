// Package jobs contains the scheduled jobs run by the natibo server.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVANCE COURSES JOB
// ══════════════════════════════════════════════════════════════════════════════

// AdvanceableLister lists courses whose current day is completed.
type AdvanceableLister interface {
	ListAdvanceable(ctx context.Context, limit int) ([]string, error)
}

// AdvanceFunc prepares the next day of a course. It reports false when the
// course was skipped because its day is still being studied.
type AdvanceFunc func(ctx context.Context, courseID string) (prepared bool, err error)

// AdvanceCoursesConfig configures AdvanceCoursesJob.
type AdvanceCoursesConfig struct {
	// BatchSize is the maximum number of courses handled per run.
	BatchSize int

	// Concurrency is the number of courses prepared in parallel.
	Concurrency int

	// Timeout bounds one run. Zero means no timeout.
	Timeout time.Duration
}

// DefaultAdvanceCoursesConfig returns sensible defaults.
func DefaultAdvanceCoursesConfig() AdvanceCoursesConfig {
	return AdvanceCoursesConfig{
		BatchSize:   100,
		Concurrency: 4,
		Timeout:     5 * time.Minute,
	}
}

// AdvanceStats describes one run of the job.
type AdvanceStats struct {
	StartedAt time.Time
	Duration  time.Duration
	Found     int
	Prepared  int
	Skipped   int
	Locked    int
	Failed    int
}

// AdvanceCoursesJob prepares the next day of every course whose current day
// has been completed, so a new day is ready when the learner comes back.
type AdvanceCoursesJob struct {
	courses AdvanceableLister
	advance AdvanceFunc
	logger  *slog.Logger
	config  AdvanceCoursesConfig

	lastStats atomic.Pointer[AdvanceStats]
}

// NewAdvanceCoursesJob creates an AdvanceCoursesJob.
func NewAdvanceCoursesJob(courses AdvanceableLister, advance AdvanceFunc, logger *slog.Logger, config AdvanceCoursesConfig) *AdvanceCoursesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &AdvanceCoursesJob{
		courses: courses,
		advance: advance,
		logger:  logger.With("job", "advance_courses"),
		config:  config,
	}
}

// Name returns the job name.
func (j *AdvanceCoursesJob) Name() string {
	return "advance_courses"
}

// Description returns a human-readable description.
func (j *AdvanceCoursesJob) Description() string {
	return "Prepares the next study day of courses whose current day is completed"
}

// Run executes one pass over the advanceable courses. Failures of single
// courses are logged and counted; only a failed listing fails the run.
func (j *AdvanceCoursesJob) Run(ctx context.Context) error {
	stats := &AdvanceStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	ids, err := j.courses.ListAdvanceable(ctx, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("advance_courses: list courses: %w", err)
	}
	stats.Found = len(ids)
	if len(ids) == 0 {
		return nil
	}

	var prepared, skipped, locked, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ok, err := j.advance(gctx, id)
			switch {
			case errors.Is(err, shared.ErrCourseLocked):
				locked.Add(1)
				j.logger.Debug("course busy, will retry next run", "course_id", id)
			case err != nil:
				failed.Add(1)
				j.logger.Warn("failed to prepare day", "course_id", id, "error", err)
			case ok:
				prepared.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Prepared = int(prepared.Load())
	stats.Skipped = int(skipped.Load())
	stats.Locked = int(locked.Load())
	stats.Failed = int(failed.Load())

	j.logger.Info("advance_courses completed",
		"found", stats.Found,
		"prepared", stats.Prepared,
		"skipped", stats.Skipped,
		"locked", stats.Locked,
		"failed", stats.Failed,
		"duration", time.Since(stats.StartedAt),
	)
	return ctx.Err()
}

// LastStats returns the statistics of the last run, or nil before the first.
func (j *AdvanceCoursesJob) LastStats() *AdvanceStats {
	return j.lastStats.Load()
}
