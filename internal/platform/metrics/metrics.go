// Package metrics defines the Prometheus instrumentation for the gateway's
// pipeline stages. Exporting/scraping infrastructure is out of scope; this
// package only registers and updates in-process counters/histograms.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the pipeline updates.
type Metrics struct {
	PolicyDecisions      *prometheus.CounterVec
	ReputationDecisions  *prometheus.CounterVec
	ReputationAdapterErr *prometheus.CounterVec
	RateLimitDecisions   *prometheus.CounterVec
	PipelineDuration     *prometheus.HistogramVec
	PolicyReloads        prometheus.Counter
	PolicyReloadFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PolicyDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edgegate_policy_decisions_total",
			Help: "Policy gate decisions by outcome (pass, or the rejecting error code: invalid_client, policy_block).",
		}, []string{"outcome"}),
		ReputationDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edgegate_reputation_decisions_total",
			Help: "Reputation gate decisions by outcome (pass or reputation_block; a fail-open check counts as pass).",
		}, []string{"outcome"}),
		ReputationAdapterErr: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edgegate_reputation_adapter_errors_total",
			Help: "Reputation adapter failures by adapter name.",
		}, []string{"adapter"}),
		RateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edgegate_rate_limit_decisions_total",
			Help: "Rate limiter decisions by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edgegate_pipeline_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		PolicyReloads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edgegate_policy_reloads_total",
			Help: "Total number of successful policy snapshot reloads.",
		}),
		PolicyReloadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edgegate_policy_reload_failures_total",
			Help: "Total number of failed policy snapshot reload attempts.",
		}),
	}
}
