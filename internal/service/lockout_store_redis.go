package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisRecordFailureScript = redis.NewScript(`
local fail_key = KEYS[1]
local lock_key = KEYS[2]
local now_ms = tonumber(ARGV[1])
local ceiling = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])
local lockout_ms = tonumber(ARGV[4])

local lock_until = redis.call("GET", lock_key)
if lock_until and tonumber(lock_until) > now_ms then
  return {tonumber(redis.call("GET", fail_key) or "0"), tonumber(lock_until)}
end

local failures = redis.call("INCR", fail_key)
redis.call("PEXPIRE", fail_key, window_ms)

if failures >= ceiling then
  local until_ms = now_ms + lockout_ms
  redis.call("SET", lock_key, tostring(until_ms), "PX", lockout_ms)
  redis.call("DEL", fail_key)
  return {0, until_ms}
end

return {failures, 0}
`)

type RedisLockoutStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisLockoutStore(client redis.UniversalClient, prefix string) *RedisLockoutStore {
	if prefix == "" {
		prefix = "pin_lockout"
	}
	return &RedisLockoutStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisLockoutStore) failKey(key string) string { return fmt.Sprintf("%s:%s:fails", s.prefix, key) }
func (s *RedisLockoutStore) lockKey(key string) string { return fmt.Sprintf("%s:%s:lock", s.prefix, key) }

func (s *RedisLockoutStore) State(ctx context.Context, key string) (LockoutState, error) {
	if s.client == nil {
		return LockoutState{}, fmt.Errorf("redis client is nil")
	}
	pipe := s.client.Pipeline()
	failCmd := pipe.Get(ctx, s.failKey(key))
	lockCmd := pipe.Get(ctx, s.lockKey(key))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return LockoutState{}, err
	}

	state := LockoutState{}
	if failures, err := failCmd.Int(); err == nil {
		state.Failures = failures
	}
	if untilMS, err := lockCmd.Int64(); err == nil {
		until := time.UnixMilli(untilMS)
		if until.After(s.now()) {
			state.LockedUntil = &until
		}
	}
	return state, nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, policy LockoutPolicy) (LockoutState, error) {
	if s.client == nil {
		return LockoutState{}, fmt.Errorf("redis client is nil")
	}
	raw, err := redisRecordFailureScript.Run(
		ctx,
		s.client,
		[]string{s.failKey(key), s.lockKey(key)},
		s.now().UnixMilli(),
		policy.AttemptCeiling,
		int(policy.FailureWindow/time.Millisecond),
		int(policy.LockoutDuration/time.Millisecond),
	).Result()
	if err != nil {
		return LockoutState{}, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return LockoutState{}, fmt.Errorf("unexpected redis script response type")
	}
	failures, err := asInt64(values[0])
	if err != nil {
		return LockoutState{}, err
	}
	untilMS, err := asInt64(values[1])
	if err != nil {
		return LockoutState{}, err
	}

	state := LockoutState{Failures: int(failures)}
	if untilMS > 0 {
		until := time.UnixMilli(untilMS)
		state.LockedUntil = &until
	}
	return state, nil
}

func (s *RedisLockoutStore) Reset(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return s.client.Del(ctx, s.failKey(key), s.lockKey(key)).Err()
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
