// Package tracing configures OpenTelemetry for the admission layer.
//
// New builds a tracer provider from config.TracingConfig and exports spans
// over OTLP/gRPC. Spans are started at four points:
//
//   - Middleware: one server span per HTTP request, continuing a W3C
//     traceparent sent by the caller
//   - the rate limit and quota admission middleware
//   - quota.Ledger reservations
//   - every provider attempt made by routing.Orchestrator
//
// With tracing disabled every component receives a noop tracer.
package tracing
