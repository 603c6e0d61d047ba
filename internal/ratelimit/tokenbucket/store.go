// Package tokenbucket implements the per-IP/per-API-key token-bucket
// rate-limit strategy. The refill-and-consume step is a single atomic Lua
// script, because two concurrent consumes for the same key must never
// observe and write the same (tokens, lastRefillTime) pair without
// serialization.
package tokenbucket

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// stepScript implements the refill-then-consume algorithm atomically:
//
//   - cold bucket (no fields): newTokens = capacity
//   - else: newTokens = min(capacity, tokens + elapsed*refillRate)
//   - newTokens < 1: reject and leave the hash and its TTL untouched (no
//     consumption; refill accrued so far is kept)
//   - else: consume one, persist both fields, set TTL
//
// Returns {allowed(0/1), newTokens, tokensAfter}, all as strings so Lua's
// number formatting can't silently lose precision across the wire.
var stepScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refillRate = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = redis.call('HGET', key, 'tokens')
local lastRefill = redis.call('HGET', key, 'lastRefillTime')

local newTokens
if tokens == false or lastRefill == false then
	newTokens = capacity
else
	local elapsed = (now - tonumber(lastRefill)) / 1000
	newTokens = math.min(capacity, tonumber(tokens) + elapsed * refillRate)
end

if newTokens < 1 then
	return {0, tostring(newTokens), tostring(newTokens)}
end

local remaining = newTokens - 1
redis.call('HSET', key, 'tokens', remaining, 'lastRefillTime', now)
redis.call('EXPIRE', key, ttl)
return {1, tostring(newTokens), tostring(remaining)}
`)

// Step is the result of one atomic bucket step.
type Step struct {
	Allowed    bool
	NewTokens  float64 // refilled level before consumption
	TokensLeft float64 // post-consume balance; meaningless when !Allowed
}

// Store executes the atomic token-bucket step against a shared backing
// store. The real implementation runs stepScript on Redis; RedisStore below
// uses an atomic "load, compare, write, all-or-nothing" Lua script so the
// check and the mutation can never be observed apart.
type Store interface {
	Step(ctx context.Context, key string, now time.Time, capacity int, refillRate float64, ttl time.Duration) (Step, error)
}

// RedisStore runs stepScript via EvalSha with an Eval fallback on script-not-
// loaded, the idiomatic go-redis pattern redis.NewScript.Run already
// implements.
type RedisStore struct {
	rdb redis.Scripter
}

// NewRedisStore builds a RedisStore.
func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Step runs the atomic script and parses its reply.
func (s *RedisStore) Step(ctx context.Context, key string, now time.Time, capacity int, refillRate float64, ttl time.Duration) (Step, error) {
	res, err := stepScript.Run(ctx, s.rdb, []string{key},
		now.UnixMilli(), capacity, refillRate, int(ttl.Seconds()),
	).Result()
	if err != nil {
		return Step{}, err
	}
	return parseStepReply(res)
}
