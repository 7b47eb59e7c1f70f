// Package telemetry groups the observability packages for Bulwark.
//
// # Components
//
//   - logging: log/slog setup with request-scoped fields and redaction
//   - metrics: Prometheus registry, HTTP and provider metrics
//   - health: liveness and readiness endpoints
//
// Admission metrics (rate limits, quota, circuit breakers) are defined in
// pkg/limits and share the metrics registry.
package telemetry
