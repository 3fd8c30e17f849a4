package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natibo/natibo/pkg/circuitbreaker"
)

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCourseCache_BreakerOpensOnOutage(t *testing.T) {
	var opened bool
	breaker := NewCourseCacheBreaker(func(_ string, _, to circuitbreaker.State) {
		if to == circuitbreaker.StateOpen {
			opened = true
		}
	})
	cache := NewCourseCache(NewCache(unreachableClient(t)), WithBreaker(breaker))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cache.Get(ctx, "course-1")
		require.Error(t, err)
		assert.False(t, circuitbreaker.IsRejected(err))
	}

	assert.True(t, opened)
	_, err := cache.Get(ctx, "course-1")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.NoError(t, cache.Set(ctx, nil, 0))
}

func TestCourseCache_WithoutBreakerAlwaysCallsRedis(t *testing.T) {
	cache := NewCourseCache(NewCache(unreachableClient(t)))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := cache.Get(ctx, "course-1")
		require.Error(t, err)
		assert.False(t, circuitbreaker.IsRejected(err))
	}
}

func TestCourseKey(t *testing.T) {
	assert.NotEqual(t, CourseKey("a"), CourseKey("b"))
	assert.Contains(t, CourseKey("abc"), "abc")
}

func TestEntryCodec(t *testing.T) {
	type payload struct {
		Cursor int `json:"cursor"`
	}

	raw, err := encodeEntry(entry{Version: formatVersion, Rev: 3}, payload{Cursor: 7})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rev":3`)

	var got payload
	require.NoError(t, decodeEntry(formatVersion, raw, &got))
	assert.Equal(t, 7, got.Cursor)

	assert.ErrorIs(t, decodeEntry(formatVersion+1, raw, &got), ErrCacheMiss)
	assert.ErrorIs(t, decodeEntry(formatVersion+1, raw, &got), errOutdatedFormat)
	assert.ErrorIs(t, decodeEntry(formatVersion, []byte("{"), &got), ErrCacheSerialization)
}

func TestEntryCodec_TombstoneReadsAsMiss(t *testing.T) {
	raw, err := encodeEntry(entry{Version: formatVersion, Gone: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"gone":true`)
	assert.NotContains(t, string(raw), `"d"`)

	var got struct{}
	err = decodeEntry(formatVersion, raw, &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NotErrorIs(t, err, errOutdatedFormat)
}

func TestCache_RejectsEmptyKeys(t *testing.T) {
	cache := NewCache(unreachableClient(t))
	ctx := context.Background()

	_, err := cache.SetIfNewer(ctx, "", struct{}{}, 1, time.Minute)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.Tombstone(ctx, "", 0), ErrCacheKeyEmpty)
}
