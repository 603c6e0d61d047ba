// Package mw adapts the tokenbucket and fixedwindow strategies into
// chi-compatible middleware: set rate-limit headers regardless of outcome,
// write the standard rejection envelope when a request is over budget.
package mw

import (
	"log/slog"
	"net/http"
	"time"

	"edgegate/internal/platform/metrics"
	"edgegate/internal/ratelimit/rlconfig"
	"edgegate/internal/ratelimit/tokenbucket"
	"edgegate/pkg/apierrors"
	"edgegate/pkg/httputil"
)

// KeyFunc derives the rate-limit identity (an IP, an API key, a user id)
// from a request. An empty string means "no identity"; the stage rejects
// such a request with 400.
type KeyFunc func(r *http.Request) string

// TokenBucketStage is a token-bucket rate-limit stage: per-IP ingress
// throttling, or per-API-key partner throttling when overrides is non-nil.
type TokenBucketStage struct {
	Store             tokenbucket.Store
	KeyFunc           KeyFunc
	DefaultCapacity   int
	DefaultRefillRate float64
	TTL               time.Duration
	KeyPrefix         string

	// Overrides, when set, lets a per-API-key configuration replace the
	// gateway-wide default capacity and refill rate.
	Overrides rlconfig.Store

	Log *slog.Logger

	// Metrics records decisions by outcome; nil disables instrumentation.
	Metrics *metrics.Metrics

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// Middleware builds the chi-compatible handler wrapper.
func (s *TokenBucketStage) Middleware() func(http.Handler) http.Handler {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := s.KeyFunc(r)
			if id == "" {
				httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "missing rate limit identifier"))
				return
			}

			capacity, refillRate := s.DefaultCapacity, s.DefaultRefillRate
			if s.Overrides != nil {
				defaults := rlconfig.Config{Capacity: s.DefaultCapacity, RefillRate: s.DefaultRefillRate}
				if cfg, err := s.Overrides.Get(r.Context(), id, defaults); err == nil {
					capacity, refillRate = cfg.Capacity, cfg.RefillRate
				} else if s.Log != nil {
					s.Log.WarnContext(r.Context(), "rate limit override lookup failed, using default", "key", id, "error", err)
				}
			}

			ts := now()
			step, err := s.Store.Step(r.Context(), s.KeyPrefix+id, ts, capacity, refillRate, s.TTL)
			if err != nil {
				if s.Log != nil {
					s.Log.WarnContext(r.Context(), "rate limit store error, failing closed", "key", id, "error", err)
				}
				if s.Metrics != nil {
					s.Metrics.RateLimitDecisions.WithLabelValues("token_bucket", "fail_closed").Inc()
				}
				httputil.WriteError(w, apierrors.New(apierrors.TransientStore, "rate limit store unavailable"))
				return
			}

			tokenbucket.Headers(w, step, capacity, refillRate, ts)
			if !step.Allowed {
				if s.Metrics != nil {
					s.Metrics.RateLimitDecisions.WithLabelValues("token_bucket", "blocked").Inc()
				}
				httputil.WriteError(w, apierrors.New(apierrors.RateLimited, "rate limit exceeded"))
				return
			}
			if s.Metrics != nil {
				s.Metrics.RateLimitDecisions.WithLabelValues("token_bucket", "allowed").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}
