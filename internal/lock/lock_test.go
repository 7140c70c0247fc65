package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAcquire_ExclusiveUntilReleased(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	a := NewSweepLock(rdb, "", time.Minute, 0, nil)
	b := NewSweepLock(rdb, "", time.Minute, 0, nil)

	release, ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()

	release2, ok, err := b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestAcquire_ExpiresAfterTTL(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	l := NewSweepLock(rdb, "k", time.Second, 0, nil)

	_, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	release, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestAcquire_RedisDown(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	_, ok, err := NewSweepLock(rdb, "", time.Second, 0, nil).Acquire(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestAcquire_WaitsForHolder(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	holder := NewSweepLock(rdb, "w", time.Minute, 0, nil)
	waiter := NewSweepLock(rdb, "w", time.Minute, 2*time.Second, nil)

	release, ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	go func() {
		time.Sleep(100 * time.Millisecond)
		release()
	}()

	release2, ok, err := waiter.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	release2()
}

func TestAcquire_GivesUpAfterWait(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	holder := NewSweepLock(rdb, "g", time.Minute, 0, nil)
	waiter := NewSweepLock(rdb, "g", time.Minute, 150*time.Millisecond, nil)

	release, ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	start := time.Now()
	_, ok, err = waiter.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}
