package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a provider that has no value for a name.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// Lookup returns the value stored under name. Missing secrets return
	// an error wrapping ErrNotFound.
	Lookup(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs (env, file).
	Name() string
}

// changeNotifier is implemented by providers that detect rotated values.
type changeNotifier interface {
	OnChange(fn func())
}
