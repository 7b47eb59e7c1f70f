package main

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/bulwark/pkg/config"
	"mercator-hq/bulwark/pkg/proxy/middleware"
	"mercator-hq/bulwark/pkg/secrets"
)

// newSecretResolver builds the resolver described by cfg. The secrets
// directory, when set, takes priority over the environment.
func newSecretResolver(cfg config.SecretsConfig, logger *slog.Logger) (*secrets.Resolver, error) {
	var list []secrets.Provider
	if cfg.Dir != "" {
		fp, err := secrets.NewFileProvider(cfg.Dir, cfg.Watch, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open secrets directory: %w", err)
		}
		list = append(list, fp)
	}
	list = append(list, secrets.NewEnvProvider(cfg.EnvPrefix))
	return secrets.NewResolver(list, cfg.CacheTTL, logger), nil
}

// resolveSecrets replaces secret references in cfg in place. The admin
// token is checked once here and returned as a per-request source so it
// follows rotation; a nil source means the token is a literal.
func resolveSecrets(ctx context.Context, cfg *config.Config, r *secrets.Resolver) (middleware.TokenSource, error) {
	var err error
	if cfg.Limits.RedisURL, err = r.Resolve(ctx, cfg.Limits.RedisURL); err != nil {
		return nil, fmt.Errorf("limits.redis_url: %w", err)
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.APIKey, err = r.Resolve(ctx, p.APIKey); err != nil {
			return nil, fmt.Errorf("providers[%d].api_key: %w", i, err)
		}
	}

	for i := range cfg.Server.APIKeys {
		k := &cfg.Server.APIKeys[i]
		if k.Key, err = r.Resolve(ctx, k.Key); err != nil {
			return nil, fmt.Errorf("server.api_keys[%d].key: %w", i, err)
		}
	}

	raw := cfg.Server.AdminToken
	if !secrets.HasReference(raw) {
		return nil, nil
	}
	if _, err := r.Resolve(ctx, raw); err != nil {
		return nil, fmt.Errorf("server.admin_token: %w", err)
	}
	return r.Source(raw), nil
}
