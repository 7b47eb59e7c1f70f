package providers

import "context"

// Provider is the interface every upstream AI adapter implements.
// Providers are black boxes to the rest of the service: a call either
// returns a response or a typed error from this package.
//
// Implementations must respect context cancellation and must not retry
// internally. Retries, circuit breaking and failover are layered on top by
// the routing package.
//
// Example usage:
//
//	resp, err := provider.SendCompletion(ctx, &CompletionRequest{
//	    Model: "gpt-4o-mini",
//	    Messages: []Message{
//	        {Role: RoleUser, Content: "Hello!"},
//	    },
//	})
type Provider interface {
	// SendCompletion sends a completion request and returns the normalized
	// response.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// GetName returns the provider's configured name. Breakers and failover
	// order are keyed by this name.
	GetName() string

	// GetType returns the provider's type (openai, anthropic, generic).
	GetType() string

	// Close releases any resources (HTTP connections, etc.).
	Close() error
}
