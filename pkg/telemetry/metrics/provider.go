package metrics

import (
	"time"

	"mercator-hq/bulwark/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks upstream provider calls made through the failover
// orchestrator.
//
// Metrics:
//   - bulwark_provider_attempts_total: Attempts by provider and outcome
//   - bulwark_provider_attempt_duration_seconds: Attempt latency, including retries
//   - bulwark_provider_fallbacks_total: Requests served by a non-primary provider
type ProviderMetrics struct {
	attempts  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "attempts_total",
				Help:      "Total number of provider attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "attempt_duration_seconds",
				Help:      "Provider attempt duration in seconds, including retries",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider"},
		),

		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "fallbacks_total",
				Help:      "Total number of requests served by a fallback provider",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		pm.attempts,
		pm.latency,
		pm.fallbacks,
	)

	return pm
}

// RecordAttempt records one provider attempt.
//
// Outcomes are the routing outcomes: "served", "circuit_open",
// "rate_limited", "exhausted", "rejected".
func (pm *ProviderMetrics) RecordAttempt(provider, outcome string, duration time.Duration) {
	pm.attempts.WithLabelValues(provider, outcome).Inc()
	if duration > 0 {
		pm.latency.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordFallback records a request served by a fallback provider.
func (pm *ProviderMetrics) RecordFallback(provider string) {
	pm.fallbacks.WithLabelValues(provider).Inc()
}
