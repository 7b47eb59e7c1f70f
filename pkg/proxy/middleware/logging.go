package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/bulwark/pkg/telemetry/tracing"
)

// RequestObserver records completed requests. The telemetry metrics
// collector implements it.
type RequestObserver interface {
	RecordRequest(route string, status int, duration time.Duration)
}

// unmatchedRoute labels requests that matched no mux pattern.
const unmatchedRoute = "unmatched"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs every request with its status and latency and
// reports it to observer, which may be nil. Requests are labelled by the
// ServeMux pattern they matched, never the raw path, so metrics stay bounded.
//
// Log format (JSON):
//
//	{
//	  "time": "2026-03-15T10:30:00Z",
//	  "level": "WARN",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "route": "POST /v1/generate/{action}",
//	  "status": 403,
//	  "latency_ms": 4,
//	  "request_id": "0b7c2d8e-...",
//	  "client_ip": "203.0.113.7"
//	}
func LoggingMiddleware(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ctx := context.WithValue(r.Context(), startTimeKey, startTime)

			rw := newResponseWriter(w)
			req := r.WithContext(ctx)

			logger.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"user_agent", r.UserAgent(),
			)

			next.ServeHTTP(rw, req)

			latency := time.Since(startTime)
			route := req.Pattern
			if route == "" {
				route = unmatchedRoute
			}

			tracing.AnnotateRequest(ctx, route, rw.statusCode)
			if observer != nil {
				observer.RecordRequest(route, rw.statusCode, latency)
			}

			logLevel := slog.LevelInfo
			if rw.statusCode >= 500 {
				logLevel = slog.LevelError
			} else if rw.statusCode >= 400 {
				logLevel = slog.LevelWarn
			}

			logger.Log(ctx, logLevel, "request completed",
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", latency.Milliseconds(),
			)
		})
	}
}
