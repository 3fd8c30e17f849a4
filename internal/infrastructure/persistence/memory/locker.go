package memory

import (
	"context"
	"sync"
)

// keyLock is the lock of one key. waiters counts holders and goroutines waiting
// for it; the entry is dropped when it reaches zero.
type keyLock struct {
	ch      chan struct{}
	waiters int
}

// Locker serializes writers per key inside one process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewLocker creates a Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Acquire blocks until key is free or ctx is done.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.ch
				l.leave(key, kl)
			})
		}, nil
	case <-ctx.Done():
		l.leave(key, kl)
		return nil, ctx.Err()
	}
}

func (l *Locker) leave(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 && l.locks[key] == kl {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
