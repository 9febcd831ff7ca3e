package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "rl:"), mr
}

func TestRedisStore_CountsAndSetsTTL(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, resetAt, err := s.Increment(ctx, "reviews:ip:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.WithinDuration(t, time.Now().Add(time.Minute), resetAt, 2*time.Second)
	}

	assert.True(t, mr.Exists("rl:reviews:ip:1.2.3.4"))
	assert.Equal(t, time.Minute, mr.TTL("rl:reviews:ip:1.2.3.4"))
}

func TestRedisStore_WindowExpires(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	_, _, err := s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	_, _, err = s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)

	mr.FastForward(time.Minute + time.Second)

	count, _, err := s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedisStore_RestoresMissingTTL(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("rl:k", "5"))

	count, _, err := s.Increment(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.Equal(t, 30*time.Second, mr.TTL("rl:k"))
}

func TestRedisStore_RejectsBadInput(t *testing.T) {
	s, _ := setupRedisStore(t)

	_, _, err := s.Increment(context.Background(), "", time.Minute)
	assert.Error(t, err)

	_, _, err = s.Increment(context.Background(), "k", 0)
	assert.Error(t, err)
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := setupRedisStore(t)
	mr.Close()

	_, _, err := s.Increment(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}
