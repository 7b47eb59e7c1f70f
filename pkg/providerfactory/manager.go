package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/bulwark/pkg/providers"
)

// Manager owns the ordered provider list resolved at startup. The order is
// the failover order: the first provider is primary, the rest are tried in
// sequence when it fails.
//
// The list never changes after construction, so reads need no locking.
type Manager struct {
	ordered []providers.Provider
	byName  map[string]providers.Provider
}

// NewManager creates every configured provider in order. Provider names
// must be unique. If any provider fails to build, the ones already built
// are closed and the error is returned.
func NewManager(configs []providers.ProviderConfig) (*Manager, error) {
	m := &Manager{
		ordered: make([]providers.Provider, 0, len(configs)),
		byName:  make(map[string]providers.Provider, len(configs)),
	}

	for _, config := range configs {
		if _, dup := m.byName[config.Name]; dup {
			_ = m.Close()
			return nil, &providers.ConfigError{
				Provider: config.Name,
				Field:    "name",
				Message:  "duplicate provider name",
			}
		}

		provider, err := NewProvider(config)
		if err != nil {
			_ = m.Close()
			return nil, err
		}

		m.ordered = append(m.ordered, provider)
		m.byName[config.Name] = provider
	}

	slog.Info("providers loaded", "order", m.Names())
	return m, nil
}

// NewManagerFromProviders wraps already-built providers, keeping their order.
func NewManagerFromProviders(list ...providers.Provider) *Manager {
	m := &Manager{
		ordered: list,
		byName:  make(map[string]providers.Provider, len(list)),
	}
	for _, p := range list {
		m.byName[p.GetName()] = p
	}
	return m
}

// Providers returns the providers in failover order.
// The returned slice is a copy and safe to modify.
func (m *Manager) Providers() []providers.Provider {
	out := make([]providers.Provider, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// GetProvider returns a provider by name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	provider, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return provider, nil
}

// Names returns the provider names in failover order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.ordered))
	for i, p := range m.ordered {
		names[i] = p.GetName()
	}
	return names
}

// ProviderCount returns the total number of providers.
func (m *Manager) ProviderCount() int {
	return len(m.ordered)
}

// Close closes all providers.
func (m *Manager) Close() error {
	var errs []error
	for _, provider := range m.ordered {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider %q: %w", provider.GetName(), err))
		}
	}
	return errors.Join(errs...)
}
