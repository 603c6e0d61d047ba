package auth

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"edgegate/pkg/sentinel"
)

// RedisRevocationChecker tracks revoked token ids in a Redis set.
type RedisRevocationChecker struct {
	rdb redis.Cmdable
	key string
}

// NewRedisRevocationChecker builds a RedisRevocationChecker.
func NewRedisRevocationChecker(rdb redis.Cmdable, prefix string) *RedisRevocationChecker {
	return &RedisRevocationChecker{rdb: rdb, key: prefix + "auth:revoked"}
}

// IsTokenRevoked reports whether jti has been added to the revocation set.
// A Redis error is wrapped as sentinel.ErrUnavailable so callers can treat
// it as a transient infrastructure fact rather than an auth decision.
func (c *RedisRevocationChecker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := c.rdb.SIsMember(ctx, c.key, jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation set: %w", sentinel.ErrUnavailable)
	}
	return revoked, nil
}

// Revoke adds jti to the revocation set, taking effect immediately across
// every gateway replica.
func (c *RedisRevocationChecker) Revoke(ctx context.Context, jti string) error {
	return c.rdb.SAdd(ctx, c.key, jti).Err()
}
