package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The window starts on the first INCR of a key; PEXPIRE then ends it. A key
// that somehow lost its TTL gets one again so it cannot block forever.
const fixedWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// RedisStore shares windows between instances through Redis.
type RedisStore struct {
	client  redis.Scripter
	script  *redis.Script
	prefix  string
	nowFunc func() time.Time
}

// NewRedisStore creates a RedisStore. Keys are stored as prefix + key.
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	return &RedisStore{
		client:  client,
		script:  redis.NewScript(fixedWindowScript),
		prefix:  prefix,
		nowFunc: time.Now,
	}
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	if key == "" {
		return 0, time.Time{}, errors.New("rate limit key is empty")
	}
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		return 0, time.Time{}, errors.New("rate limit window must be at least 1ms")
	}

	res, err := s.script.Run(ctx, s.client, []string{s.prefix + key}, windowMs).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("run fixed window script: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("fixed window script returned %d values", len(res))
	}

	resetAt := s.nowFunc().Add(time.Duration(res[1]) * time.Millisecond)
	return int(res[0]), resetAt, nil
}
