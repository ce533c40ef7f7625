// Package lock elects a single worker leader with a Redis lock.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"

	"oilmill/pkg/logger"
)

// Leader runs work only while holding a Redis lock. A second worker started
// against the same Redis waits until the first one stops or loses the lock.
type Leader struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	retry  time.Duration
}

// NewLeader creates a leader elector for key.
func NewLeader(client redislock.RedisClient, key string, ttl time.Duration) *Leader {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Leader{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
		retry:  ttl / 2,
	}
}

// Run blocks until ctx is done. Each time the lock is obtained fn runs with
// a context that is cancelled when the lock can no longer be refreshed.
func (l *Leader) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	for {
		lk, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			logger.Debug(ctx, "leader lock held elsewhere", "key", l.key)
		case err != nil:
			logger.Warn(ctx, "obtain leader lock", "key", l.key, "error", err)
		default:
			logger.Info(ctx, "leader lock obtained", "key", l.key)
			if err := l.lead(ctx, lk, fn); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *Leader) lead(ctx context.Context, lk *redislock.Lock, fn func(ctx context.Context) error) error {
	leadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release leader lock", "key", l.key, "error", err)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- fn(leadCtx) }()

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			if err := lk.Refresh(ctx, l.ttl, nil); err != nil {
				logger.Warn(ctx, "leader lock lost", "key", l.key, "error", err)
				cancel()
				<-done
				return nil
			}
		}
	}
}
