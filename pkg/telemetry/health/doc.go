// Package health provides liveness, readiness and version endpoints.
//
// Components register checks; a check that returns an error wrapping
// ErrDegraded marks the system degraded but still ready (HTTP 200), any
// other error marks it unhealthy (HTTP 503):
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("rate_limit_store", func(ctx context.Context) error {
//	    if storage.ModeOf(store) == storage.ModeDegraded {
//	        return health.Degraded("shared store unreachable")
//	    }
//	    return nil
//	})
//	checker.RegisterInfo("breakers", func() any { return registry.Stats() })
//
//	mux.HandleFunc("GET /healthz", checker.ReadinessHandler())
//	mux.HandleFunc("GET /livez", checker.LivenessHandler())
package health
