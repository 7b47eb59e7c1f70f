package proxy

import (
	"context"
	"errors"

	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/resilience/breaker"
	"mercator-hq/bulwark/pkg/resilience/retry"
	"mercator-hq/bulwark/pkg/routing"
)

// Kind is the error category an error is normalized to at the HTTP
// boundary.
type Kind string

const (
	// KindTransient covers timeouts, network failures, 5xx responses and
	// anything unclassified.
	KindTransient Kind = "transient"

	// KindRateLimited is an upstream provider throttling us.
	KindRateLimited Kind = "rate_limited"

	// KindCircuitOpen is a call rejected by an open circuit breaker.
	KindCircuitOpen Kind = "circuit_open"

	// KindAdmissionDenied is a request refused by our own rate limiter or
	// quota ledger.
	KindAdmissionDenied Kind = "admission_denied"

	// KindNotFound is a missing quota account.
	KindNotFound Kind = "not_found"
)

// Classify normalizes err to one of the error kinds.
//
// An *routing.AllProvidersFailedError unwraps to every provider error, so it
// is matched first and always reported as transient.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, routing.ErrAllProvidersFailed):
		return KindTransient
	case errors.Is(err, quota.ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ratelimit.ErrLimitExceeded), errors.Is(err, quota.ErrQuotaExceeded):
		return KindAdmissionDenied
	case errors.Is(err, breaker.ErrOpen):
		return KindCircuitOpen
	case retry.IsRateLimited(err):
		return KindRateLimited
	default:
		return KindTransient
	}
}

// RateLimitCode returns the error code for a rejected request of class.
func RateLimitCode(class string) string {
	switch class {
	case ratelimit.ClassAuth:
		return types.CodeAuthRateLimitExceeded
	case ratelimit.ClassAI:
		return types.CodeAIRateLimitExceeded
	default:
		return types.CodeRateLimitExceeded
	}
}

// RateLimitMessage returns the client-facing message for a rejected request
// of class.
func RateLimitMessage(class string) string {
	switch class {
	case ratelimit.ClassAuth:
		return "Too many authentication attempts, please try again later"
	case ratelimit.ClassAI:
		return "Too many AI requests, please slow down"
	default:
		return "Too many requests, please try again later"
	}
}

// HandleError converts an error to the response body sent to the client.
// Internal details are never exposed; callers log err themselves.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	if errors.Is(err, routing.ErrAllProvidersFailed) || errors.Is(err, routing.ErrNoProvidersConfigured) {
		return types.NewErrorResponse(
			"AI service is temporarily unavailable, please try again later",
			types.CodeProvidersUnavailable,
		)
	}

	var rlErr *ratelimit.ExceededError
	if errors.As(err, &rlErr) {
		resp := types.NewErrorResponse(RateLimitMessage(rlErr.Policy), RateLimitCode(rlErr.Policy))
		resp.RetryAfter = (&ratelimit.Result{RetryAfter: rlErr.RetryAfter}).RetryAfterSeconds()
		return resp
	}

	var quotaErr *quota.ExceededError
	if errors.As(err, &quotaErr) {
		return types.NewErrorResponse(quotaErr.Error(), types.CodeQuotaExceeded)
	}

	if errors.Is(err, quota.ErrUnknownAction) {
		return types.NewErrorResponse("Unknown action", types.CodeNotFound)
	}

	switch Classify(err) {
	case KindNotFound:
		return types.NewErrorResponse("User not found", types.CodeUserNotFound)
	case KindCircuitOpen, KindRateLimited:
		return types.NewErrorResponse("Service is temporarily unavailable", types.CodeServiceUnavailable)
	}

	if errors.Is(err, context.DeadlineExceeded) || retry.IsTimeout(err) {
		return types.NewErrorResponse("Request timed out", types.CodeGatewayTimeout)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
