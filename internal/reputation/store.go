package reputation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if its value still matches the
// token the acquirer holds, so a lock that expired and was re-acquired by
// another replica is never released out from under it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store is the Redis-backed verdict cache and single-flight lock: cache key
// geo:reputation:<ip>, lock key geo:lock:<ip>.
type Store struct {
	rdb    redis.Cmdable
	prefix string
}

// NewStore builds a Store against a prefixed Redis command connection.
func NewStore(rdb redis.Cmdable, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) cacheKey(ip string) string { return s.prefix + "geo:reputation:" + ip }
func (s *Store) lockKey(ip string) string  { return s.prefix + "geo:lock:" + ip }

// GetVerdict reads and parses the cached verdict for ip. A miss returns
// (nil, nil); a cache hit returns the parsed verdict. The remaining TTL is
// not returned.
func (s *Store) GetVerdict(ctx context.Context, ip string) (Verdict, error) {
	raw, err := s.rdb.Get(ctx, s.cacheKey(ip)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// SetVerdict writes verdict as JSON with the given TTL.
func (s *Store) SetVerdict(ctx context.Context, ip string, verdict Verdict, ttl time.Duration) error {
	raw, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.cacheKey(ip), raw, ttl).Err()
}

// AcquireLock attempts set-if-not-exists with a millisecond TTL, returning a
// unique token on success (to later release with compare-and-delete) or ""
// if another replica already holds the lock.
func (s *Store) AcquireLock(ctx context.Context, ip string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := s.rdb.SetNX(ctx, s.lockKey(ip), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock deletes the lock only if it still holds token, guarding
// against releasing a lock a different replica has since acquired after TTL
// expiry.
func (s *Store) ReleaseLock(ctx context.Context, ip, token string) error {
	return releaseScript.Run(ctx, s.rdb, []string{s.lockKey(ip)}, token).Err()
}
