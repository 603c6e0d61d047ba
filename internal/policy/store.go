package policy

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"edgegate/pkg/sentinel"
)

// Key suffixes for the four policy-list sets.
const (
	KeyIPAllow     = "geo:whitelist:ips"
	KeyIPDeny      = "geo:blocklist:ips"
	KeyCIDRDeny    = "geo:blocklist:cidrs"
	KeyCountryDeny = "geo:blocklist:countries"

	keyIPAllow     = KeyIPAllow
	keyIPDeny      = KeyIPDeny
	keyCIDRDeny    = KeyCIDRDeny
	keyCountryDeny = KeyCountryDeny

	// InvalidationChannel is the pub/sub channel name; the key prefix is
	// applied the same way as the list keys so multi-tenant deployments
	// sharing one Redis don't cross-invalidate.
	InvalidationChannel = "invalidation"
	// ReloadPayload is the literal message body that triggers a reload.
	ReloadPayload = "reload"
)

// Store fetches the four policy-list sets from the shared store. A narrow
// interface lets Cache.Reload be tested against a fake without Redis.
type Store interface {
	LoadAll(ctx context.Context) (ipAllow, ipDeny, cidrDeny, countryDeny []string, err error)
	AddIP(ctx context.Context, listKey string, ip string) error
	RemoveIP(ctx context.Context, listKey string, ip string) error
	Publish(ctx context.Context, channel, payload string) error
}

// RedisStore implements Store against a prefixed Redis command connection.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisStore builds a RedisStore. prefix is applied to every key.
func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(suffix string) string { return s.prefix + suffix }

// LoadAll fetches all four sets concurrently via a pipeline.
func (s *RedisStore) LoadAll(ctx context.Context) ([]string, []string, []string, []string, error) {
	pipe := s.rdb.Pipeline()
	ipAllowCmd := pipe.SMembers(ctx, s.key(keyIPAllow))
	ipDenyCmd := pipe.SMembers(ctx, s.key(keyIPDeny))
	cidrDenyCmd := pipe.SMembers(ctx, s.key(keyCIDRDeny))
	countryDenyCmd := pipe.SMembers(ctx, s.key(keyCountryDeny))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, nil, nil, nil, fmt.Errorf("load policy sets: %w", err)
	}
	return ipAllowCmd.Val(), ipDenyCmd.Val(), cidrDenyCmd.Val(), countryDenyCmd.Val(), nil
}

// AddIP adds a member to the named list key, one of the Key* constants (the
// admin handlers and policyctl map their list names to these).
func (s *RedisStore) AddIP(ctx context.Context, listKey, ip string) error {
	return s.rdb.SAdd(ctx, s.key(listKey), ip).Err()
}

// RemoveIP removes a member from the named list key. If the member wasn't
// present, it wraps sentinel.ErrNotFound so callers can tell a no-op apart
// from a genuine store failure.
func (s *RedisStore) RemoveIP(ctx context.Context, listKey, ip string) error {
	n, err := s.rdb.SRem(ctx, s.key(listKey), ip).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("remove %q from %q: %w", ip, listKey, sentinel.ErrNotFound)
	}
	return nil
}

// Publish publishes payload on channel, with the store's prefix applied.
func (s *RedisStore) Publish(ctx context.Context, channel, payload string) error {
	return s.rdb.Publish(ctx, s.prefix+channel, payload).Err()
}
