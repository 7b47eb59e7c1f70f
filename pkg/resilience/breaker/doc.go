// Package breaker provides named circuit breakers for upstream dependencies.
//
// Each CircuitBreaker wraps a failsafe-go count-based breaker and keeps
// the bookkeeping operators need: consecutive failures and the instant the
// circuit last opened. A Registry hands out one breaker per dependency name
// and exposes snapshots and resets for admin endpoints.
//
//	reg := breaker.NewRegistry(breaker.Config{FailureThreshold: 5, ResetTimeout: time.Minute})
//	err := reg.Get("openai").Call(ctx, func(ctx context.Context) error {
//	    return callOpenAI(ctx)
//	})
//	if errors.Is(err, breaker.ErrOpen) {
//	    // fail over
//	}
//
// Breaker state is process-local. Replicas trip independently.
package breaker
