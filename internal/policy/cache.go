package policy

import (
	"context"
	"log/slog"
	"sync/atomic"

	"edgegate/internal/platform/metrics"
)

// Cache serves O(1) policy queries from an atomically-swapped in-memory
// Snapshot. Bootstrap/Reload replace the pointer wholesale; readers never
// observe a torn list.
type Cache struct {
	snapshot atomic.Pointer[Snapshot]
	store    Store
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewCache constructs a Cache with an empty snapshot installed so reads
// never see nil before the first Bootstrap call completes. m may be nil to
// disable instrumentation.
func NewCache(store Store, log *slog.Logger, m *metrics.Metrics) *Cache {
	c := &Cache{store: store, log: log, metrics: m}
	c.snapshot.Store(emptySnapshot())
	return c
}

// Bootstrap fetches all four sets and installs the resulting snapshot. It is
// identical to Reload; kept as a separate name for the startup call site's
// readability.
func (c *Cache) Bootstrap(ctx context.Context) error {
	return c.Reload(ctx)
}

// Reload fetches all four sets and atomically installs the resulting
// snapshot. On failure the previous snapshot remains in effect and the
// failure is logged; the process does not terminate.
func (c *Cache) Reload(ctx context.Context) error {
	ipAllow, ipDeny, cidrDeny, countryDeny, err := c.store.LoadAll(ctx)
	if err != nil {
		if c.log != nil {
			c.log.ErrorContext(ctx, "policy cache reload failed, keeping previous snapshot", "error", err)
		}
		if c.metrics != nil {
			c.metrics.PolicyReloadFailures.Inc()
		}
		return err
	}
	c.snapshot.Store(newSnapshot(ipAllow, ipDeny, cidrDeny, countryDeny))
	if c.metrics != nil {
		c.metrics.PolicyReloads.Inc()
	}
	return nil
}

// Current returns the currently installed snapshot.
func (c *Cache) Current() *Snapshot {
	return c.snapshot.Load()
}

// IsAllowlisted reads the current snapshot.
func (c *Cache) IsAllowlisted(ip string) bool { return c.Current().IsAllowlisted(ip) }

// IsDenylisted reads the current snapshot.
func (c *Cache) IsDenylisted(ip string) bool { return c.Current().IsDenylisted(ip) }

// IsCountryBlocked reads the current snapshot.
func (c *Cache) IsCountryBlocked(cc string) bool { return c.Current().IsCountryBlocked(cc) }
