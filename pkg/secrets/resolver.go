package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// refPattern matches ${secret:name} references.
var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return refPattern.MatchString(s)
}

// Resolver looks secrets up across providers in priority order and
// caches the results.
//
// Example:
//
//	fp, _ := secrets.NewFileProvider("/run/secrets", true, logger)
//	r := secrets.NewResolver([]secrets.Provider{fp, secrets.NewEnvProvider("")}, 5*time.Minute, logger)
//	key, err := r.Resolve(ctx, "${secret:openai-api-key}")
type Resolver struct {
	providers []Provider
	cache     *cache
	logger    *slog.Logger
}

// NewResolver creates a resolver. The first provider holding a name wins.
// ttl bounds how long a value is reused; zero looks it up every time.
// Providers that report changes clear the cache immediately.
func NewResolver(providers []Provider, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		providers: providers,
		cache:     newCache(ttl),
		logger:    logger.With("component", "secrets"),
	}
	for _, p := range providers {
		if n, ok := p.(changeNotifier); ok {
			n.OnChange(r.Invalidate)
		}
	}
	return r
}

// Get returns the secret stored under name.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	if value, ok := r.cache.get(name); ok {
		return value, nil
	}

	var errs []error
	for _, p := range r.providers {
		value, err := p.Lookup(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.logger.WarnContext(ctx, "secret provider failed",
					"provider", p.Name(),
					"secret", redactName(name),
					"error", err,
				)
			}
			errs = append(errs, err)
			continue
		}

		r.cache.set(name, value)
		r.logger.DebugContext(ctx, "secret resolved", "provider", p.Name(), "secret", redactName(name))
		return value, nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s (no providers configured)", ErrNotFound, name)
	}
	return "", fmt.Errorf("failed to resolve secret %q: %w", name, errors.Join(errs...))
}

// Resolve replaces every ${secret:name} reference in s. Strings without
// references are returned unchanged. Any unresolved reference fails the
// whole call.
func (r *Resolver) Resolve(ctx context.Context, s string) (string, error) {
	if !HasReference(s) {
		return s, nil
	}

	var errs []error
	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(refPattern.FindStringSubmatch(match)[1])
		value, err := r.Get(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

// Source returns a function that resolves s on every call. It serves
// values that must follow rotation, like the admin token.
func (r *Resolver) Source(s string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return r.Resolve(ctx, s)
	}
}

// Invalidate drops every cached value.
func (r *Resolver) Invalidate() {
	r.cache.clear()
	r.logger.Debug("secret cache cleared")
}

// Close releases providers that hold resources.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// redactName keeps the first and last two characters of a secret name.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
