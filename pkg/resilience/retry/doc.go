// Package retry runs operations with exponential backoff, per-attempt
// timeouts and pluggable retry predicates.
//
// The backoff loop is a failsafe-go retry policy. This package adds the
// per-attempt deadline, the error classifiers used across the service and
// typed errors for timeouts and exhaustion.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return client.Call(ctx)
//	}, retry.Options{
//	    MaxRetries:     2,
//	    BaseDelay:      time.Second,
//	    AttemptTimeout: 30 * time.Second,
//	    ShouldRetry:    retry.SkipRateLimited(retry.DefaultShouldRetry),
//	})
//
// Errors are classified through small interfaces so callers never depend on
// concrete provider types: HTTPStatus() int for status-carrying errors,
// RateLimited() bool for upstream throttling and Timeout() bool for
// deadlines.
package retry
