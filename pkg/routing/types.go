package routing

import (
	"time"

	"mercator-hq/bulwark/pkg/providers"
)

// Outcome classifies what happened when a provider was tried.
type Outcome string

const (
	// OutcomeServed means the provider returned a response.
	OutcomeServed Outcome = "served"

	// OutcomeCircuitOpen means the provider's breaker rejected the call
	// without invoking it.
	OutcomeCircuitOpen Outcome = "circuit_open"

	// OutcomeRateLimited means the provider throttled the call. It is not
	// retried on the same provider.
	OutcomeRateLimited Outcome = "rate_limited"

	// OutcomeExhausted means every retry failed with a transient error.
	OutcomeExhausted Outcome = "exhausted"

	// OutcomeRejected means the provider returned a non-retryable error.
	OutcomeRejected Outcome = "rejected"
)

// Attempt records one provider's part in a Complete call.
type Attempt struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// Outcome classifies the result.
	Outcome Outcome `json:"outcome"`

	// Err is the error the provider failed with. Nil when served.
	Err error `json:"-"`

	// Duration is the time spent on this provider, including retries.
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a successful Complete call.
type Result struct {
	// Response is the provider's normalized response.
	Response *providers.CompletionResponse

	// Provider is the name of the provider that served the request.
	Provider string

	// Attempts lists every provider tried, ending with the one that served.
	Attempts []Attempt

	// IsFallback is true when the serving provider was not the first one.
	IsFallback bool
}

// Skipped returns the names of providers tried before the serving one.
func (r *Result) Skipped() []string {
	if len(r.Attempts) <= 1 {
		return nil
	}
	names := make([]string, 0, len(r.Attempts)-1)
	for _, a := range r.Attempts[:len(r.Attempts)-1] {
		names = append(names, a.Provider)
	}
	return names
}

// RoutingStats contains statistics about routing decisions.
type RoutingStats struct {
	// TotalRequests is the total number of Complete calls.
	TotalRequests int64 `json:"total_requests"`

	// ServedPerProvider counts requests each provider served.
	ServedPerProvider map[string]int64 `json:"served_per_provider"`

	// SkippedPerProvider counts failed or rejected attempts per provider.
	SkippedPerProvider map[string]int64 `json:"skipped_per_provider"`

	// FallbackCount is the number of requests served by a non-primary provider.
	FallbackCount int64 `json:"fallback_count"`

	// Errors is the number of requests where every provider failed.
	Errors int64 `json:"errors"`

	// LastResetTime is when statistics were last reset.
	LastResetTime time.Time `json:"last_reset_time"`
}
