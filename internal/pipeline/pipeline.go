// Package pipeline composes the gateway's request-evaluation stages into
// one chi-compatible middleware, run in a fixed order ahead of every
// handler that isn't a health probe.
package pipeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"edgegate/internal/ipresolve"
	"edgegate/internal/platform/metrics"
	"edgegate/pkg/apierrors"
	"edgegate/pkg/httputil"
)

// PolicyStage is the narrow contract pipeline.New needs from the policy
// gate — satisfied by *policy.Gate, and fakeable in tests.
type PolicyStage interface {
	Check(ctx context.Context, ip string) *apierrors.Error
}

// ReputationStage is the narrow contract pipeline.New needs from the
// reputation gate — satisfied by *reputation.Gate.
type ReputationStage interface {
	Check(ctx context.Context, ip string) *apierrors.Error
}

// RateLimitStage is one rate-limit strategy's chi middleware, satisfied by
// *mw.TokenBucketStage and *mw.FixedWindowStage.
type RateLimitStage interface {
	Middleware() func(http.Handler) http.Handler
}

// Config wires the stages pipeline.New composes.
type Config struct {
	Resolver   *ipresolve.Resolver
	Policy     PolicyStage
	Reputation ReputationStage
	RateLimit  RateLimitStage

	// Metrics records per-stage decisions and latency; nil disables it.
	Metrics *metrics.Metrics
}

// isHealthPath reports whether path is a health probe; health paths bypass
// every stage but IP resolution.
func isHealthPath(path string) bool {
	return path == "/health" || path == "/healthz" || strings.HasPrefix(path, "/health/")
}

type decisionVec int

const (
	policyOutcome decisionVec = iota
	reputationOutcome
)

func countDecisions(m *metrics.Metrics, which decisionVec, outcome string) {
	if m == nil {
		return
	}
	switch which {
	case policyOutcome:
		m.PolicyDecisions.WithLabelValues(outcome).Inc()
	case reputationOutcome:
		m.ReputationDecisions.WithLabelValues(outcome).Inc()
	}
}

func observeStage(m *metrics.Metrics, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// New builds the fixed-order middleware: IPResolver always runs (it is
// pure and cheap and downstream handlers and logging want the resolved IP
// regardless); health paths then skip straight to next.
func New(cfg Config) func(http.Handler) http.Handler {
	resolve := ipresolve.Middleware(cfg.Resolver)
	rateLimit := cfg.RateLimit.Middleware()

	return func(next http.Handler) http.Handler {
		// PolicyGate and ReputationGate run first, in front of the
		// RateLimiter, so a blocked or malicious IP never spends a
		// rate-limit budget it shouldn't have been allowed to use.
		rateLimited := rateLimit(next)

		gated := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ipresolve.ClientIP(r.Context())

			policyStart := time.Now()
			policyErr := cfg.Policy.Check(r.Context(), ip)
			observeStage(cfg.Metrics, "policy", time.Since(policyStart))
			if policyErr != nil {
				countDecisions(cfg.Metrics, policyOutcome, string(policyErr.Code))
				httputil.WriteError(w, policyErr)
				return
			}
			countDecisions(cfg.Metrics, policyOutcome, "pass")

			reputationStart := time.Now()
			reputationErr := cfg.Reputation.Check(r.Context(), ip)
			observeStage(cfg.Metrics, "reputation", time.Since(reputationStart))
			if reputationErr != nil {
				countDecisions(cfg.Metrics, reputationOutcome, string(reputationErr.Code))
				httputil.WriteError(w, reputationErr)
				return
			}
			countDecisions(cfg.Metrics, reputationOutcome, "pass")

			rateLimited.ServeHTTP(w, r)
		})

		return resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			gated.ServeHTTP(w, r)
		}))
	}
}
