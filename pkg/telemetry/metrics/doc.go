// Package metrics provides the Prometheus registry and HTTP/provider metrics
// for Bulwark.
//
// # Metrics Categories
//
//   - Request Metrics: HTTP request count and duration by route, admission
//     rejections by error code
//   - Provider Metrics: failover attempts by provider and outcome, attempt
//     latency, fallback count
//
// Rate limit, quota and circuit breaker metrics are defined in pkg/limits
// and registered on the same registry:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	admission := limits.NewMetrics(collector.Registry())
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// The Collector implements routing.Observer, so it can be passed to the
// failover orchestrator directly.
//
// # Cardinality Management
//
// Route labels are mux patterns. At most 256 distinct routes are tracked;
// the rest, and requests that matched no pattern, are counted as "other".
package metrics
