// Package providers defines the contract for upstream AI providers and the
// shared HTTP plumbing the adapters are built on.
//
// # Overview
//
// Every adapter (openai, anthropic, generic) implements Provider. A call
// makes exactly one upstream attempt and either returns a normalized
// CompletionResponse or one of the typed errors in this package:
//
//	*AuthError       401/403, never retried
//	*RateLimitError  429, retried on the same provider only when the caller allows it
//	*TimeoutError    deadline exceeded, transient
//	*ProviderError   other statuses and transport failures
//	*ParseError      malformed upstream body, treated as a 502
//	*ValidationError request rejected before sending, treated as a 400
//
// Errors expose HTTPStatus, RateLimited or Timeout methods so the retry
// package can classify them without importing this package.
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	    Model:   "gpt-4o-mini",
//	    Timeout: 30 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	resp, err := provider.SendCompletion(ctx, &providers.CompletionRequest{
//	    Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hello!"}},
//	})
//
// Retries, circuit breaking and failover across providers live in the
// routing package; providerfactory builds the ordered provider list from
// configuration.
package providers
