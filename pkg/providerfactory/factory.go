package providerfactory

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/providers/anthropic"
	"mercator-hq/bulwark/pkg/providers/generic"
	"mercator-hq/bulwark/pkg/providers/openai"
)

type builder func(providers.ProviderConfig) (providers.Provider, error)

var builders = map[string]builder{
	providers.TypeOpenAI: func(c providers.ProviderConfig) (providers.Provider, error) {
		return openai.NewProvider(c)
	},
	providers.TypeAnthropic: func(c providers.ProviderConfig) (providers.Provider, error) {
		return anthropic.NewProvider(c)
	},
	providers.TypeGeneric: func(c providers.ProviderConfig) (providers.Provider, error) {
		return generic.NewProvider(c)
	},
}

// vendorHosts maps hosted API domains to their adapter.
var vendorHosts = map[string]string{
	"api.openai.com":    providers.TypeOpenAI,
	"api.anthropic.com": providers.TypeAnthropic,
}

// SupportedTypes lists the provider types NewProvider accepts.
func SupportedTypes() []string {
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// NewProvider builds one failover target. An empty Type is inferred from
// the name ("openai", "anthropic"), then from the BaseURL host; anything
// else is treated as an OpenAI-compatible generic endpoint.
func NewProvider(config providers.ProviderConfig) (providers.Provider, error) {
	if config.Type == "" {
		config.Type = inferType(config)
	}

	build, ok := builders[config.Type]
	if !ok {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message: fmt.Sprintf("unsupported provider type %q (supported: %s)",
				config.Type, strings.Join(SupportedTypes(), ", ")),
		}
	}

	provider, err := build(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}

	slog.Debug("provider created", "name", config.Name, "type", config.Type)
	return provider, nil
}

func inferType(config providers.ProviderConfig) string {
	if _, ok := builders[config.Name]; ok {
		return config.Name
	}
	if u, err := url.Parse(config.BaseURL); err == nil {
		if t, ok := vendorHosts[strings.ToLower(u.Hostname())]; ok {
			return t
		}
	}
	return providers.TypeGeneric
}
