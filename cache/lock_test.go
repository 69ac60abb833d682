package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLock(t *testing.T) (*RedisLock, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	return newLockOn(t, s), s
}

func newLockOn(t *testing.T, s *miniredis.Miniredis) *RedisLock {
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLock(client)
}

func TestRedisLock(t *testing.T) {
	lock, s := setupLock(t)
	ctx := context.Background()

	ok, err := lock.Lock(ctx, "payment:booking-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Lock(ctx, "payment:booking-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	ok, err = lock.Lock(ctx, "payment:booking-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different keys do not contend")

	require.NoError(t, lock.Unlock(ctx, "payment:booking-1"))
	ok, err = lock.Lock(ctx, "payment:booking-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("Expiry", func(t *testing.T) {
		ok, err := lock.Lock(ctx, "payment:ttl", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		s.FastForward(2 * time.Second)
		ok, err = lock.Lock(ctx, "payment:ttl", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisLockReleaseChecksOwner(t *testing.T) {
	s := miniredis.RunT(t)
	first, second := newLockOn(t, s), newLockOn(t, s)
	ctx := context.Background()
	key := lockKey("payment:booking-1")

	ok, err := first.Lock(ctx, "payment:booking-1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(2 * time.Second)
	ok, err = second.Lock(ctx, "payment:booking-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// the lapsed holder finishing late must not free the new holder's lock
	require.NoError(t, first.Unlock(ctx, "payment:booking-1"))
	assert.True(t, s.Exists(key))
	ok, err = first.Lock(ctx, "payment:booking-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Unlock(ctx, "payment:booking-1"))
	assert.False(t, s.Exists(key))

	// releasing a lock never taken is a no-op
	require.NoError(t, second.Unlock(ctx, "payment:booking-9"))
}

func TestRedisLockError(t *testing.T) {
	lock, s := setupLock(t)
	s.Close()

	_, err := lock.Lock(context.Background(), "k", time.Second)
	assert.Error(t, err)
}

func TestNopLocker(t *testing.T) {
	var l Locker = NopLocker{}
	ok, err := l.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, l.Unlock(context.Background(), "k"))
}
