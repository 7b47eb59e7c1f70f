// Package routing implements provider failover for AI completion calls.
//
// An Orchestrator holds the provider list resolved at startup, in failover
// order. For each request it walks the list, calling each provider through
// a named circuit breaker wrapped around the retry executor. Rate-limited
// providers are not retried; they are skipped in favour of the next one.
// The first success is returned together with the attempts that preceded
// it. When nothing succeeds, the caller gets an *AllProvidersFailedError
// that names every provider and its error.
//
// Example:
//
//	registry := breaker.NewRegistry(breaker.DefaultConfig())
//	orch, err := routing.NewOrchestrator(manager.Providers(), registry, routing.Options{
//	    Retry: retry.DefaultOptions(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := orch.Complete(ctx, req)
//	if errors.Is(err, routing.ErrAllProvidersFailed) {
//	    // respond 502
//	}
package routing
