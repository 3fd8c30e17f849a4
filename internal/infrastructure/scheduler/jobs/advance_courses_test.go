package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natibo/natibo/internal/domain/shared"
)

type stubLister struct {
	ids   []string
	err   error
	limit int
}

func (s *stubLister) ListAdvanceable(_ context.Context, limit int) ([]string, error) {
	s.limit = limit
	return s.ids, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdvanceCoursesJob_CountsOutcomes(t *testing.T) {
	lister := &stubLister{ids: []string{"ok-1", "ok-2", "skip", "busy", "broken"}}

	var mu sync.Mutex
	seen := map[string]bool{}
	advance := func(_ context.Context, id string) (bool, error) {
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		switch id {
		case "skip":
			return false, nil
		case "busy":
			return false, shared.ErrCourseLocked
		case "broken":
			return false, errors.New("boom")
		}
		return true, nil
	}

	job := NewAdvanceCoursesJob(lister, advance, quietLogger(), AdvanceCoursesConfig{BatchSize: 10, Concurrency: 2})
	assert.Nil(t, job.LastStats())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 10, lister.limit)
	assert.Len(t, seen, 5)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 5, stats.Found)
	assert.Equal(t, 2, stats.Prepared)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Locked)
	assert.Equal(t, 1, stats.Failed)
}

func TestAdvanceCoursesJob_ListFailureFailsRun(t *testing.T) {
	lister := &stubLister{err: errors.New("db down")}
	called := false
	job := NewAdvanceCoursesJob(lister, func(context.Context, string) (bool, error) {
		called = true
		return true, nil
	}, quietLogger(), DefaultAdvanceCoursesConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.False(t, called)
}

func TestAdvanceCoursesJob_NothingToDo(t *testing.T) {
	job := NewAdvanceCoursesJob(&stubLister{}, nil, quietLogger(), AdvanceCoursesConfig{})
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, job.LastStats().Found)
	assert.Equal(t, "advance_courses", job.Name())
}
