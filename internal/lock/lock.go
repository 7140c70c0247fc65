// Package lock serialises expiry sweeps across server instances with a
// Redis lock.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKey is the Redis key guarding the overdue sweep.
const DefaultKey = "lock:visits:expire-overdue"

const retryEvery = 50 * time.Millisecond

// SweepLock is a mutex held in Redis.  Acquire waits at most wait for the
// current holder to finish.
type SweepLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

func NewSweepLock(rdb *redis.Client, key string, ttl, wait time.Duration, log *zap.Logger) *SweepLock {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait < 0 {
		wait = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepLock{locker: redislock.New(rdb), key: key, ttl: ttl, wait: wait, log: log}
}

// Acquire obtains the lock, retrying until it is free or wait elapses.
// ok is false when another process still holds it.
func (l *SweepLock) Acquire(ctx context.Context) (func(), bool, error) {
	opts := &redislock.Options{RetryStrategy: redislock.NoRetry()}
	obtainCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
		opts.RetryStrategy = redislock.LinearBackoff(retryEvery)
	}
	lk, err := l.locker.Obtain(obtainCtx, l.key, l.ttl, opts)
	switch {
	case errors.Is(err, redislock.ErrNotObtained):
		return nil, false, nil
	case err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		// The wait ran out mid round trip.
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	release := func() {
		// Use a fresh context; the caller's may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn("sweep lock release failed", zap.String("key", l.key), zap.Error(err))
		}
	}
	return release, true, nil
}
