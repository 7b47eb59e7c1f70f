// Package middleware provides the HTTP middleware of the service: request
// admission (rate limiting and quota reservation), request IDs, structured
// request logging, panic recovery and admin authentication.
//
// # Admission
//
// RateLimit runs first for every request. It keys the sliding-window
// counter by client identity and request class, and always sets:
//
//	X-RateLimit-Limit: 10
//	X-RateLimit-Remaining: 3
//	X-RateLimit-Reset: 1773570600
//
// Rejected requests get Retry-After and a 429 body whose code names the
// class (AUTH_RATE_LIMIT_EXCEEDED, AI_RATE_LIMIT_EXCEEDED,
// RATE_LIMIT_EXCEEDED).
//
// Quota runs after RateLimit on metered routes. It reserves the action's
// cost for the X-User-ID user and stores the quota.Decision in the context:
//
//	chat := middleware.Chain(chatHandler,
//	    middleware.RateLimit(manager, middleware.Class(ratelimit.ClassAI), opts),
//	    middleware.Quota(manager.Ledger(), quota.ActionChatbot, opts),
//	)
//
// # Ordering
//
// The server wraps the mux as Recovery -> RequestID -> Logging -> mux, so
// every log record carries request_id and client_ip and panics are logged
// with the request that caused them.
package middleware
