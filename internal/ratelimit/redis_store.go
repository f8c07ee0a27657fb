package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces limiter keys in a shared Redis
const DefaultKeyPrefix = "site:contact-rl:"

// hitScript runs the fixed-window transition server-side so concurrent
// requests from several instances cannot both take the last slot.
// ARGV: now (ms), window (ms), limit. Returns {admitted, count, reset_at_ms}.
const hitScript = `
local vals = redis.call('HMGET', KEYS[1], 'count', 'reset_at')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local count = tonumber(vals[1])
local reset = tonumber(vals[2])
if count == nil or reset == nil or now >= reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset_at', reset)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, 1, reset}
end
if count < limit then
  count = redis.call('HINCRBY', KEYS[1], 'count', 1)
  return {1, count, reset}
end
return {0, count, reset}
`

// RedisStore shares window records between instances through Redis
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisClient builds a client from a redis:// URL
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisStore creates a store on top of client. An empty prefix selects DefaultKeyPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Hit applies the fixed-window transition atomically in Redis
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, policy Policy) (Record, bool, error) {
	raw, err := s.client.Eval(ctx, hitScript, []string{s.prefix + key},
		now.UnixMilli(), policy.Window.Milliseconds(), int64(policy.Limit)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("rate limit script failed: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return Record{}, false, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	admitted, ok1 := values[0].(int64)
	count, ok2 := values[1].(int64)
	resetMs, ok3 := values[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Record{}, false, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	return Record{Count: int(count), ResetAt: time.UnixMilli(resetMs)}, admitted == 1, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
