package handlers

import (
	"context"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/routing"
)

// Completer sends a completion through the provider failover chain.
// *routing.Orchestrator implements it.
type Completer interface {
	Complete(ctx context.Context, req *providers.CompletionRequest) (*routing.Result, error)
}

// FallbackObserver is told when a request was served by a fallback
// provider. The telemetry metrics collector implements it.
type FallbackObserver interface {
	RecordFallback(provider string)
}
