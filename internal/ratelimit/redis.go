package ratelimit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// takeScript keeps {count, reset} in a hash. reset is unix ms chosen by the caller's
// clock so every replica reports the same window end. The key expires with the window.
var takeScript = redis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset') or '0')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

if count == 0 or now > reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, 1, reset}
end

if count >= max then
  return {0, count, reset}
end

count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, count, reset}
`)

// RedisStore shares windows across API replicas.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client, prefix: "rl:"}
}

func (s *RedisStore) Take(ctx context.Context, key string, win time.Duration, max int, now time.Time) (Decision, error) {
	res, err := takeScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), win.Milliseconds(), max).Int64Slice()
	if err != nil {
		return Decision{}, errors.Wrap(err, "rate limit script")
	}
	if len(res) != 3 {
		return Decision{}, errors.Newf("rate limit script returned %d values", len(res))
	}

	allowed := res[0] == 1
	remaining := 0
	if allowed {
		remaining = max - int(res[1])
	}
	return Decision{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(res[2]),
	}, nil
}
