package middleware

import (
	"context"
	"time"

	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// startTimeKey stores the request start time for latency calculation.
	startTimeKey contextKey = "start_time"

	// rateLimitKey stores the *ratelimit.Result of the admission check.
	rateLimitKey contextKey = "rate_limit"

	// quotaDecisionKey stores the quota.Decision of a metered request.
	quotaDecisionKey contextKey = "quota_decision"
)

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

// WithQuotaDecision stores a reservation outcome in ctx.
func WithQuotaDecision(ctx context.Context, d quota.Decision) context.Context {
	return context.WithValue(ctx, quotaDecisionKey, d)
}

// QuotaDecision returns the reservation made by the Quota middleware.
func QuotaDecision(ctx context.Context) (quota.Decision, bool) {
	d, ok := ctx.Value(quotaDecisionKey).(quota.Decision)
	return d, ok
}

// WithRateLimitResult stores an admission check in ctx.
func WithRateLimitResult(ctx context.Context, r *ratelimit.Result) context.Context {
	return context.WithValue(ctx, rateLimitKey, r)
}

// RateLimitResult returns the admission check made by the RateLimit
// middleware.
func RateLimitResult(ctx context.Context) (*ratelimit.Result, bool) {
	r, ok := ctx.Value(rateLimitKey).(*ratelimit.Result)
	return r, ok
}
