package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/bulwark/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// maxRoutes bounds the route label. Routes are mux patterns, so the limit
// only matters if patterns are generated dynamically.
const maxRoutes = 256

// overflowRoute labels requests whose route is unknown or over the limit.
const overflowRoute = "other"

// Collector owns the Prometheus registry and the HTTP and provider metrics.
// Admission metrics (rate limits, quota, breakers) live in pkg/limits and
// register with the same registry.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requests  *RequestMetrics
	providers *ProviderMetrics
	routes    *labelGuard
}

// NewCollector registers the HTTP and provider metrics. A nil registry gets
// a fresh one carrying the Go runtime and process collectors.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	limitsMetrics := limits.NewMetrics(collector.Registry())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		requests:  NewRequestMetrics(cfg, registry),
		providers: NewProviderMetrics(cfg, registry),
		routes:    newLabelGuard(maxRoutes),
	}
}

// RecordRequest records a completed HTTP request under its mux pattern,
// e.g. "POST /v1/chat".
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	if !c.config.IsEnabled() {
		return
	}
	if route == "" || !c.routes.admit(route) {
		route = overflowRoute
	}
	c.requests.RecordRequest(route, status, duration)
}

// RecordAdmissionRejection counts a request rejected before its handler ran,
// by error code (e.g. "AUTH_RATE_LIMIT_EXCEEDED").
func (c *Collector) RecordAdmissionRejection(code string) {
	if !c.config.IsEnabled() {
		return
	}
	c.requests.RecordRejection(code)
}

// ObserveProviderAttempt records one provider attempt made by the failover
// orchestrator. It implements routing.Observer.
func (c *Collector) ObserveProviderAttempt(provider, outcome string, duration time.Duration) {
	if !c.config.IsEnabled() {
		return
	}
	c.providers.RecordAttempt(provider, outcome, duration)
}

// RecordFallback records a request served by a non-primary provider.
func (c *Collector) RecordFallback(provider string) {
	if !c.config.IsEnabled() {
		return
	}
	c.providers.RecordFallback(provider)
}

// Registry returns the registry other packages register their metrics with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// labelGuard admits at most max distinct label values. Values seen before
// are always admitted.
type labelGuard struct {
	max  int64
	n    atomic.Int64
	seen sync.Map
}

func newLabelGuard(max int) *labelGuard {
	return &labelGuard{max: int64(max)}
}

func (g *labelGuard) admit(value string) bool {
	if _, ok := g.seen.Load(value); ok {
		return true
	}
	if g.n.Add(1) > g.max {
		g.n.Add(-1)
		return false
	}
	if _, loaded := g.seen.LoadOrStore(value, struct{}{}); loaded {
		g.n.Add(-1)
	}
	return true
}

func (g *labelGuard) count() int {
	return int(g.n.Load())
}
