package reputation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"edgegate/internal/platform/metrics"
)

// AdapterSet fans out Check calls over every registered Adapter
// concurrently, bounding each call with its own timeout (an adapter
// deadlines must be <= lockTtl so the lock is effectively tied to the
// ongoing work). Plain goroutines + sync.WaitGroup are used here rather than
// errgroup.
type AdapterSet struct {
	adapters []Adapter
	timeout  time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewAdapterSet builds an AdapterSet. timeout bounds each individual
// adapter's Check call. m may be nil to disable instrumentation.
func NewAdapterSet(adapters []Adapter, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *AdapterSet {
	return &AdapterSet{adapters: adapters, timeout: timeout, log: log, metrics: m}
}

// CheckAll invokes every adapter concurrently and returns one Result per
// adapter. A failing adapter's error is swallowed and converted to an empty
// Result per the adapter contract; the failure is logged at warn with the
// adapter name.
func (s *AdapterSet) CheckAll(ctx context.Context, ip string) Verdict {
	verdict := make(Verdict, len(s.adapters))
	var wg sync.WaitGroup
	for i, a := range s.adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res, err := a.Check(callCtx, ip)
			if err != nil {
				if s.log != nil {
					s.log.WarnContext(ctx, "reputation adapter failed", "adapter", a.Name(), "error", err)
				}
				if s.metrics != nil {
					s.metrics.ReputationAdapterErr.WithLabelValues(a.Name()).Inc()
				}
				res = Result{}
			}
			verdict[i] = res
		}(i, a)
	}
	wg.Wait()
	return verdict
}
