package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/telemetry/logging"
)

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 128

// RequestIDMiddleware assigns each request an ID, stores it in the logging
// context and echoes it in the X-Request-ID response header. A client
// supplied X-Request-ID is kept when it is short enough.
//
// The client identity is resolved here as well so every log record of the
// request carries client_ip.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(proxy.RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		ctx = logging.WithClientIP(ctx, proxy.ClientIP(r))

		w.Header().Set(proxy.RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
