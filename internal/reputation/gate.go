package reputation

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"edgegate/pkg/apierrors"
)

// VerdictStore is the narrow persistence contract Gate depends on, letting
// unit tests supply a fake without a Redis connection. *Store implements it.
type VerdictStore interface {
	GetVerdict(ctx context.Context, ip string) (Verdict, error)
	SetVerdict(ctx context.Context, ip string, verdict Verdict, ttl time.Duration) error
	AcquireLock(ctx context.Context, ip string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, ip, token string) error
}

// Gate runs the cache-check / lock / fan-out-to-adapters decision. Ahead of
// the Redis single-flight lock, an in-process singleflight.Group coalesces
// concurrent goroutines in this process evaluating the same IP — an
// optimization that avoids N redundant cache reads/lock attempts from one
// process hitting Redis at once; it does not change the cross-replica
// semantics, where the Redis lock remains the authority.
type Gate struct {
	store     VerdictStore
	adapters  *AdapterSet
	cacheTTL  time.Duration
	lockTTL   time.Duration
	threshold int
	log       *slog.Logger

	inflight singleflight.Group
}

// NewGate builds a Gate.
func NewGate(store VerdictStore, adapters *AdapterSet, cacheTTL, lockTTL time.Duration, threshold int, log *slog.Logger) *Gate {
	return &Gate{store: store, adapters: adapters, cacheTTL: cacheTTL, lockTTL: lockTTL, threshold: threshold, log: log}
}

// Check runs the cache-or-refresh decision for ip. A missing IP passes
// without blocking; any unexpected store error fails open.
func (g *Gate) Check(ctx context.Context, ip string) *apierrors.Error {
	if ip == "" {
		return nil
	}

	verdict, err := g.verdictFor(ctx, ip)
	if err != nil {
		if g.log != nil {
			g.log.WarnContext(ctx, "reputation check failed, failing open", "ip", ip, "error", err)
		}
		return nil
	}
	if verdict.MaxScore() >= g.threshold {
		return apierrors.New(apierrors.ReputationBlock, "IP reputation over threshold")
	}
	return nil
}

// verdictFor returns the cached verdict, refreshing it via the
// cache-miss/single-flight path when necessary. The in-process singleflight
// key is the IP so concurrent goroutines in this process share one
// Redis-facing attempt.
func (g *Gate) verdictFor(ctx context.Context, ip string) (Verdict, error) {
	v, err, _ := g.inflight.Do(ip, func() (interface{}, error) {
		return g.verdictFromStoreOrAdapters(ctx, ip)
	})
	if err != nil {
		return nil, err
	}
	return v.(Verdict), nil
}

func (g *Gate) verdictFromStoreOrAdapters(ctx context.Context, ip string) (Verdict, error) {
	cached, err := g.store.GetVerdict(ctx, ip)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	token, err := g.store.AcquireLock(ctx, ip, g.lockTTL)
	if err != nil {
		return nil, err
	}
	if token == "" {
		// Another replica is refreshing; pass without blocking or queuing —
		// accepting a brief stale-allow window in exchange for latency and
		// deadlock safety.
		return Verdict{}, nil
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if relErr := g.store.ReleaseLock(releaseCtx, ip, token); relErr != nil && g.log != nil {
			g.log.WarnContext(ctx, "failed to release reputation lock", "ip", ip, "error", relErr)
		}
	}()

	verdict := g.adapters.CheckAll(ctx, ip)
	if err := g.store.SetVerdict(ctx, ip, verdict, g.cacheTTL); err != nil && g.log != nil {
		g.log.WarnContext(ctx, "failed to cache reputation verdict", "ip", ip, "error", err)
	}
	return verdict, nil
}
