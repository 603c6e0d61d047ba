// Package fixedwindow implements the fixed-window counter rate-limit
// strategy used for the admin API surface: a per-window counter incremented
// atomically, with the window's expiry armed on the request that creates
// the counter (and re-armed only if the key is found without an expiry).
package fixedwindow

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the window counter and arms its TTL on first
// creation, re-arming it only if the key has no expiry — arming it on every
// call would let a steady trickle of requests keep renewing the window
// forever and never reset.
var incrScript = redis.NewScript(`
local key = KEYS[1]
local windowSeconds = tonumber(ARGV[1])

local count = redis.call('INCR', key)
if count == 1 then
	redis.call('EXPIRE', key, windowSeconds)
end
local ttl = redis.call('TTL', key)
if ttl < 0 then
	redis.call('EXPIRE', key, windowSeconds)
	ttl = windowSeconds
end
return {count, ttl}
`)

// Step is the result of one atomic window increment.
type Step struct {
	Count       int64
	TTLSeconds  int64
}

// Store executes the atomic window-increment step.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (Step, error)
}

// RedisStore runs incrScript against Redis.
type RedisStore struct {
	rdb redis.Scripter
}

// NewRedisStore builds a RedisStore.
func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Incr runs the atomic script and parses its reply.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (Step, error) {
	res, err := incrScript.Run(ctx, s.rdb, []string{key}, int64(window.Seconds())).Result()
	if err != nil {
		return Step{}, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Step{}, errUnexpectedReply
	}
	count, err := toInt64(vals[0])
	if err != nil {
		return Step{}, err
	}
	ttl, err := toInt64(vals[1])
	if err != nil {
		return Step{}, err
	}
	return Step{Count: count, TTLSeconds: ttl}, nil
}
