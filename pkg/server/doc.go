// Package server wires the admission middleware, handlers and telemetry
// endpoints into one HTTP server and manages its lifecycle.
//
// # Routes
//
//	POST   /v1/chat                  ai rate limit, chatbot quota
//	POST   /v1/generate/{action}     ai rate limit, per-action quota
//	POST   /auth/login               auth rate limit
//	*      /admin/...                general rate limit, bearer token
//	GET    /healthz, /livez, /version
//	GET    /metrics                  when metrics are enabled
//
// Every request passes Recovery, RequestID and Logging before routing.
//
// # Basic Usage
//
//	srv, err := server.NewServer(cfg.Server, cfg.Telemetry.Metrics.Path, server.Deps{
//	    Limits:    manager,
//	    Completer: orchestrator,
//	    Breakers:  breakers,
//	    Health:    checker,
//	    Metrics:   collector,
//	    Logger:    logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // blocks until ctx is done or SIGINT/SIGTERM
package server
