package runlock

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
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, "", time.Minute)

	first, err := locker.TryAcquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := locker.TryAcquire(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	third, err := locker.TryAcquire(ctx)
	require.NoError(t, err)
	assert.NotNil(t, third)
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, "lock:test", 30*time.Second)

	stale, err := locker.TryAcquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, stale)

	mr.FastForward(31 * time.Second)

	fresh, err := locker.TryAcquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, fresh)

	// the expired lease must not delete the new holder's key
	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("lock:test"))

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, mr.Exists("lock:test"))
}

func TestRedisLocker_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	_, err := NewRedisLocker(client, "", time.Minute).TryAcquire(context.Background())
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	lease, err := Noop{}.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}
