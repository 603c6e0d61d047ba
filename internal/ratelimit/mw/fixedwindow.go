package mw

import (
	"log/slog"
	"net/http"
	"time"

	"edgegate/internal/platform/metrics"
	"edgegate/internal/ratelimit/fixedwindow"
	"edgegate/pkg/apierrors"
	"edgegate/pkg/httputil"
)

// FixedWindowStage is a fixed-window rate-limit stage, used for the admin
// API surface where bursts matter less than a simple, predictable quota.
type FixedWindowStage struct {
	Store     fixedwindow.Store
	KeyFunc   KeyFunc
	Limit     int
	Window    time.Duration
	KeyPrefix string

	// HeaderPrefix names the rate-limit response headers, e.g.
	// "X-RateLimit" or "X-Admin-RateLimit". Defaults to "X-RateLimit".
	HeaderPrefix string

	Log     *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Middleware builds the chi-compatible handler wrapper.
func (s *FixedWindowStage) Middleware() func(http.Handler) http.Handler {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	headerPrefix := s.HeaderPrefix
	if headerPrefix == "" {
		headerPrefix = "X-RateLimit"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := s.KeyFunc(r)
			if id == "" {
				httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "missing rate limit identifier"))
				return
			}

			step, err := s.Store.Incr(r.Context(), s.KeyPrefix+id, s.Window)
			if err != nil {
				if s.Log != nil {
					s.Log.WarnContext(r.Context(), "rate limit store error, failing closed", "key", id, "error", err)
				}
				if s.Metrics != nil {
					s.Metrics.RateLimitDecisions.WithLabelValues("fixed_window", "fail_closed").Inc()
				}
				httputil.WriteError(w, apierrors.New(apierrors.TransientStore, "rate limit store unavailable"))
				return
			}

			fixedwindow.Headers(w, step, s.Limit, headerPrefix, now())
			if !fixedwindow.Allowed(step, s.Limit) {
				if s.Metrics != nil {
					s.Metrics.RateLimitDecisions.WithLabelValues("fixed_window", "blocked").Inc()
				}
				httputil.WriteError(w, apierrors.New(apierrors.RateLimited, "rate limit exceeded"))
				return
			}
			if s.Metrics != nil {
				s.Metrics.RateLimitDecisions.WithLabelValues("fixed_window", "allowed").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}
