// Package rlconfig stores per-API-key token-bucket overrides for the
// partner rate-limit stage: capacity and refill rate can be tuned per key
// without redeploying the gateway.
package rlconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Config is one API key's token-bucket parameters. IsDefault reports
// whether Capacity/RefillRate came from a stored override (false) or were
// synthesized because no override exists, or the stored value was corrupt
// (true) — callers fall back to the gateway-wide default in either case.
type Config struct {
	APIKey     string
	Capacity   int
	RefillRate float64
	IsDefault  bool
}

const configKey = "rl:config"

// storedValue is the JSON payload held in one field of the rl:config hash.
type storedValue struct {
	Capacity   int     `json:"capacity"`
	RefillRate float64 `json:"refillRate"`
}

// Store is the CRUD contract for per-key overrides, narrow enough for unit
// tests to fake without a Redis connection.
type Store interface {
	// Get returns the stored override for apiKey, or defaults with
	// IsDefault set when no override exists or the stored value is
	// corrupt.
	Get(ctx context.Context, apiKey string, defaults Config) (Config, error)
	Set(ctx context.Context, cfg Config) error
	Delete(ctx context.Context, apiKey string) error
	List(ctx context.Context) ([]Config, error)
}

// RedisStore persists overrides as JSON-encoded fields of a single hash,
// one field per API key, matching the shared-store layout the rest of the
// gateway's config tables use.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	log    *slog.Logger
}

// NewRedisStore builds a RedisStore. log may be nil; it is only used to
// warn about corrupt stored values.
func NewRedisStore(rdb redis.Cmdable, prefix string, log *slog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, log: log}
}

func (s *RedisStore) key() string {
	return s.prefix + configKey
}

// Get loads one key's override. A missing field or a value that fails to
// parse as JSON both fall back to defaults marked IsDefault:true; a parse
// failure is logged at warn rather than returned as an error, since a
// corrupt override should degrade to the gateway default, not break
// rate-limiting for that key.
func (s *RedisStore) Get(ctx context.Context, apiKey string, defaults Config) (Config, error) {
	raw, err := s.rdb.HGet(ctx, s.key(), apiKey).Result()
	if err == redis.Nil {
		return asDefault(apiKey, defaults), nil
	}
	if err != nil {
		return Config{}, err
	}
	var v storedValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if s.log != nil {
			s.log.WarnContext(ctx, "corrupt rate limit override, using default", "api_key", apiKey, "error", err)
		}
		return asDefault(apiKey, defaults), nil
	}
	return Config{APIKey: apiKey, Capacity: v.Capacity, RefillRate: v.RefillRate}, nil
}

// Set writes or replaces a key's override.
func (s *RedisStore) Set(ctx context.Context, cfg Config) error {
	raw, err := json.Marshal(storedValue{Capacity: cfg.Capacity, RefillRate: cfg.RefillRate})
	if err != nil {
		return fmt.Errorf("encode rate limit override for %q: %w", cfg.APIKey, err)
	}
	return s.rdb.HSet(ctx, s.key(), cfg.APIKey, raw).Err()
}

// Delete removes a key's override, reverting it to the gateway default.
func (s *RedisStore) Delete(ctx context.Context, apiKey string) error {
	return s.rdb.HDel(ctx, s.key(), apiKey).Err()
}

// List returns every configured override. A field that fails to parse is
// skipped and logged rather than failing the whole call.
func (s *RedisStore) List(ctx context.Context) ([]Config, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Config, 0, len(vals))
	for apiKey, raw := range vals {
		var v storedValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			if s.log != nil {
				s.log.WarnContext(ctx, "corrupt rate limit override, skipping", "api_key", apiKey, "error", err)
			}
			continue
		}
		out = append(out, Config{APIKey: apiKey, Capacity: v.Capacity, RefillRate: v.RefillRate})
	}
	return out, nil
}

func asDefault(apiKey string, defaults Config) Config {
	d := defaults
	d.APIKey = apiKey
	d.IsDefault = true
	return d
}
