package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/natibo/natibo/internal/domain/shared"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a distributed lock keyed by resource name.
type Locker struct {
	client   *redis.Client
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithLockTTL sets how long a lock lives if its holder never releases it.
func WithLockTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) { l.ttl = ttl }
}

// WithLockWait sets how long Acquire keeps trying before giving up.
func WithLockWait(wait time.Duration) LockerOption {
	return func(l *Locker) { l.wait = wait }
}

// NewLocker creates a Locker.
func NewLocker(client *redis.Client, opts ...LockerOption) *Locker {
	l := &Locker{
		client:   client,
		ttl:      TTLCourseLock,
		wait:     2 * time.Second,
		interval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the lock of key, polling until the wait elapses.
// Returns ErrCourseLocked when another holder keeps it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := LockKey(key)
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(lockKey, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, shared.ErrCourseLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}
}

func (l *Locker) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// An expired lock is released by Redis itself.
	_ = releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
}
