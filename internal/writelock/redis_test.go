package writelock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedis_LockAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	lock := NewRedis(client, "halodb:write", time.Minute)
	assert.Equal(t, "halodb:write", lock.Key())

	a := NewHandle(lock)
	require.NoError(t, a.Acquire(ctx))
	assert.True(t, mr.Exists("halodb:write"))

	b := NewHandle(NewRedis(client, "halodb:write", time.Minute))
	waitCtx, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Acquire(waitCtx), context.DeadlineExceeded)

	require.NoError(t, a.Release(ctx))
	assert.False(t, mr.Exists("halodb:write"))

	require.NoError(t, b.Acquire(ctx))
	require.NoError(t, b.Release(ctx))
}

func TestRedis_ReleaseLeavesOtherOwnersKey(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	lock := NewRedis(client, "halodb:write", time.Second)

	unlock, err := lock.Lock(ctx)
	require.NoError(t, err)

	// Our lease expires and another owner takes the key.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("halodb:write", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("halodb:write")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_ServerError(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedis(client, "k", time.Second).Lock(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis error acquiring lock")
}
