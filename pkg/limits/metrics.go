package limits

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mercator-hq/bulwark/pkg/limits/storage"
	"mercator-hq/bulwark/pkg/resilience/breaker"
)

// Metrics contains Prometheus metrics for the admission layer.
type Metrics struct {
	// Rate limit checks
	rateLimitChecks *prometheus.CounterVec
	rateLimitHits   *prometheus.CounterVec

	// Counter store backend
	storeMode *prometheus.GaugeVec

	// Circuit breakers
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec

	// Quota ledger
	quotaReservations *prometheus.CounterVec
	quotaRollovers    *prometheus.CounterVec
}

// NewMetrics creates the admission metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		rateLimitChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulwark_limits_rate_limit_checks_total",
				Help: "Total number of rate limit checks performed",
			},
			[]string{"class", "result"},
		),

		rateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulwark_limits_rate_limit_hits_total",
				Help: "Total number of rate limit violations",
			},
			[]string{"class"},
		),

		storeMode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bulwark_limits_store_mode",
				Help: "Active counter store backend (1 for the current mode)",
			},
			[]string{"mode"},
		),

		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bulwark_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		breakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulwark_breaker_transitions_total",
				Help: "Total number of circuit breaker state transitions",
			},
			[]string{"name", "to"},
		),

		quotaReservations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulwark_quota_reservations_total",
				Help: "Total number of token reservations",
			},
			[]string{"tier", "action", "result"},
		),

		quotaRollovers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulwark_quota_rollovers_total",
				Help: "Total number of monthly quota period rollovers",
			},
			[]string{"tier"},
		),
	}
}

// RecordRateLimitCheck records a rate limit check.
func (m *Metrics) RecordRateLimitCheck(class string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "blocked"
		m.rateLimitHits.WithLabelValues(class).Inc()
	}
	m.rateLimitChecks.WithLabelValues(class, result).Inc()
}

// SetStoreMode marks mode as the active counter store backend. Its
// signature matches storage.Config.OnModeChange.
func (m *Metrics) SetStoreMode(mode storage.Mode) {
	for _, candidate := range []storage.Mode{storage.ModeMemory, storage.ModeShared, storage.ModeDegraded} {
		v := 0.0
		if candidate == mode {
			v = 1
		}
		m.storeMode.WithLabelValues(string(candidate)).Set(v)
	}
}

// RecordBreakerTransition records a state change. Its signature matches
// breaker.Config.OnStateChange.
func (m *Metrics) RecordBreakerTransition(name string, from, to breaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
	m.breakerTransitions.WithLabelValues(name, to.String()).Inc()
}

// RecordReservation implements quota.Observer.
func (m *Metrics) RecordReservation(tier string, action string, allowed bool, wasReset bool) {
	if action == "" {
		action = "custom"
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.quotaReservations.WithLabelValues(tier, action, result).Inc()
	if wasReset {
		m.quotaRollovers.WithLabelValues(tier).Inc()
	}
}
