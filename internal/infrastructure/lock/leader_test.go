package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeader_OnlyOneRuns(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var running, maxRunning atomic.Int32
	work := func(ctx context.Context) error {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		<-ctx.Done()
		running.Add(-1)
		return nil
	}

	a := NewLeader(client, "oilmill:worker", time.Second)
	b := NewLeader(client, "oilmill:worker", time.Second)

	errs := make(chan error, 2)
	go func() { errs <- a.Run(ctx, work) }()
	go func() { errs <- b.Run(ctx, work) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, int32(1), maxRunning.Load())
	assert.False(t, mr.Exists("oilmill:worker"))
}

func TestLeader_StopsWhenLockLost(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	l := NewLeader(client, "oilmill:worker", 150*time.Millisecond)
	stopped := make(chan struct{})
	go func() {
		_ = l.Run(ctx, func(ctx context.Context) error {
			mr.Del("oilmill:worker")
			<-ctx.Done()
			close(stopped)
			cancel()
			return nil
		})
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("work was not cancelled after the lock was lost")
	}
}
