package generic

import (
	"log/slog"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/providers/openai"
)

// placeholderKey is sent when no key is configured. Self-hosted servers
// ignore the Authorization header.
const placeholderKey = "unused"

// Provider speaks the OpenAI chat completions format to a self-hosted or
// third-party endpoint (Ollama, vLLM, LM Studio). It is usually the last
// entry in the failover order.
type Provider struct {
	*openai.Provider
}

// NewProvider creates a generic provider. BaseURL and Model are required:
// there is no public default endpoint and no model the server is known to
// serve.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	for _, req := range []struct{ field, value string }{
		{"name", config.Name},
		{"base_url", config.BaseURL},
		{"model", config.Model},
	} {
		if req.value == "" {
			provider := config.Name
			if provider == "" {
				provider = providers.TypeGeneric
			}
			return nil, &providers.ConfigError{
				Provider: provider,
				Field:    req.field,
				Message:  req.field + " is required for generic providers",
			}
		}
	}

	if config.APIKey == "" {
		config.APIKey = placeholderKey
	}
	config.Type = providers.TypeGeneric

	inner, err := openai.NewProvider(config)
	if err != nil {
		return nil, err
	}

	slog.Debug("generic provider ready", "provider", config.Name, "base_url", config.BaseURL, "model", config.Model)
	return &Provider{Provider: inner}, nil
}
