package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return j.err
}

func quietScheduler() *Scheduler {
	return New(Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		TickInterval: 5 * time.Millisecond,
	})
}

func TestScheduler_RunsRegisteredJobs(t *testing.T) {
	s := quietScheduler()
	job := &countingJob{name: "count"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Second)), ErrJobAlreadyExists)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	m := s.Metrics()
	assert.GreaterOrEqual(t, m.Executions, int64(2))
	assert.Zero(t, m.Failures)
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	s := quietScheduler()
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobRunning)

	close(job.block)
	require.NoError(t, s.Stop())
}

func TestScheduler_RunNowRecordsFailures(t *testing.T) {
	s := quietScheduler()
	boom := errors.New("boom")
	job := &countingJob{name: "failing", err: boom}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "failing")
	assert.ErrorIs(t, err, boom)
	assert.False(t, result.Success)
	assert.True(t, result.Manual)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].FailCount)
	assert.Equal(t, "@every 1h0m0s", infos[0].Schedule)
}

func TestScheduler_DisabledJobsDoNotRun(t *testing.T) {
	s := quietScheduler()
	job := &countingJob{name: "off"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))
	require.NoError(t, s.SetEnabled("off", false))
	assert.ErrorIs(t, s.SetEnabled("missing", true), ErrJobNotFound)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Zero(t, job.runs.Load())
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULES
// ══════════════════════════════════════════════════════════════════════════════

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("@every 90s")
	require.NoError(t, err)
	assert.Equal(t, "@every 1m30s", s.String())

	s, err = ParseSchedule(EveryDay4AM)
	require.NoError(t, err)
	assert.Equal(t, EveryDay4AM, s.String())

	for _, bad := range []string{"@every nope", "@every -1s", "* * *", "61 * * * *", "5-1 * * * *", "*/0 * * * *"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestCronExpression_Next(t *testing.T) {
	base := time.Date(2026, 3, 6, 10, 17, 42, 0, time.UTC) // Friday

	tests := []struct {
		expr string
		want time.Time
	}{
		{EveryMinute, time.Date(2026, 3, 6, 10, 18, 0, 0, time.UTC)},
		{Every5Minutes, time.Date(2026, 3, 6, 10, 20, 0, 0, time.UTC)},
		{EveryDay4AM, time.Date(2026, 3, 7, 4, 0, 0, 0, time.UTC)},
		{"30 6 * * 1-5", time.Date(2026, 3, 9, 6, 30, 0, 0, time.UTC)},
		{"0 12,18 * * *", time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParseCronExpression(tt.expr).Next(base))
		})
	}
}
