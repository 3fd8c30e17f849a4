package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func newTestBreaker(opts ...Option) (*CircuitBreaker, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("test", opts...)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(WithFailureThreshold(2))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, 1, cb.Counts().Rejected)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(WithFailureThreshold(2))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, ok))
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cb, now := newTestBreaker(
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithMaxHalfOpenRequests(2),
		WithOpenTimeout(time.Minute),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	*now = now.Add(time.Minute)

	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(WithFailureThreshold(1), WithOpenTimeout(time.Minute))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	*now = now.Add(time.Minute)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
}

func TestCircuitBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	miss := errors.New("miss")
	cb := CacheBreaker(func(err error) bool { return errors.Is(err, miss) }, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return miss }), miss)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Fallback(t *testing.T) {
	cb, _ := newTestBreaker(WithFailureThreshold(1))
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)

	err := cb.ExecuteWithFallback(ctx, ok, func(err error) error {
		assert.True(t, IsRejected(err))
		return nil
	})
	assert.NoError(t, err)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
}
