package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/bulwark/pkg/config"
	"mercator-hq/bulwark/pkg/limits"
	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/storage"
	"mercator-hq/bulwark/pkg/providerfactory"
	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/resilience/breaker"
	"mercator-hq/bulwark/pkg/resilience/retry"
	"mercator-hq/bulwark/pkg/routing"
	"mercator-hq/bulwark/pkg/secrets"
	"mercator-hq/bulwark/pkg/server"
	"mercator-hq/bulwark/pkg/telemetry/health"
	"mercator-hq/bulwark/pkg/telemetry/metrics"
	"mercator-hq/bulwark/pkg/telemetry/tracing"
)

// healthCheckUser is looked up by the quota store health check. It never
// exists; the lookup only proves the store answers.
const healthCheckUser = "bulwark-health-check"

// tracerShutdownTimeout bounds the final span export on Close.
const tracerShutdownTimeout = 5 * time.Second

// app is the fully wired service.
type app struct {
	server    *server.Server
	manager   *limits.Manager
	breakers  *breaker.Registry
	providers *providerfactory.Manager
	retention *quota.Scheduler
	secrets   *secrets.Resolver
	health    *health.Checker
	tracer    *tracing.Tracer
	logger    *slog.Logger

	// closers release resources created before the manager took ownership.
	closers []func() error
}

// newApp builds every component described by cfg. Secret references in cfg
// are resolved in place. ctx bounds startup connections and the lifetime
// of background jobs.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.secrets, err = newSecretResolver(cfg.Secrets, logger)
	if err != nil {
		return nil, err
	}
	adminToken, err := resolveSecrets(ctx, cfg, a.secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	var (
		collector    *metrics.Collector
		limitMetrics *limits.Metrics
	)
	if cfg.Telemetry.Metrics.IsEnabled() {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		limitMetrics = limits.NewMetrics(collector.Registry())
	}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	store := newCounterStore(ctx, cfg.Limits, logger, limitMetrics)
	a.closers = append(a.closers, store.Close)

	accounts, err := openAccountStore(cfg.Quota)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, accounts.Close)

	ledgerOpts := []quota.LedgerOption{quota.WithLogger(logger), quota.WithTracer(a.tracer.Tracer())}
	if limitMetrics != nil {
		ledgerOpts = append(ledgerOpts, quota.WithObserver(limitMetrics))
	}
	ledger := quota.NewLedger(accounts, ledgerOpts...)

	a.manager, err = limits.NewManager(store, ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to create limits manager: %w", err)
	}
	a.closers = nil

	if pruner, ok := accounts.(quota.HistoryPruner); ok {
		a.retention = quota.NewScheduler(pruner, quota.RetentionConfig{
			RetentionDays: cfg.Quota.Retention.Days,
			PruneSchedule: cfg.Quota.Retention.PruneSchedule,
		})
		if err := a.retention.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else if next := a.retention.NextRun(); next != nil {
			logger.Debug("quota history retention scheduled", "next_run", next)
		}
	}

	breakerCfg := breaker.Config{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		ResetTimeout:     cfg.Resilience.ResetTimeout,
		Logger:           logger,
	}
	if limitMetrics != nil {
		breakerCfg.OnStateChange = limitMetrics.RecordBreakerTransition
	}
	a.breakers = breaker.NewRegistry(breakerCfg)

	deps := server.Deps{
		Limits:       a.manager,
		Breakers:     a.breakers,
		AdminToken:   adminToken,
		LimitMetrics: limitMetrics,
		Metrics:      collector,
		Tracer:       a.tracer,
		Logger:       logger,
		Version:      Version,
		Commit:       GitCommit,
		BuildTime:    BuildDate,
	}

	if len(cfg.Providers) > 0 {
		a.providers, err = providerfactory.NewManager(providerConfigs(cfg.Providers))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize providers: %w", err)
		}

		opts := routing.Options{
			Retry:  retryOptions(cfg.Resilience),
			Logger: logger,
			Tracer: a.tracer.Tracer(),
		}
		if collector != nil {
			opts.Observer = collector
		}
		orchestrator, err := routing.NewOrchestrator(a.providers.Providers(), a.breakers, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create failover orchestrator: %w", err)
		}
		deps.Completer = orchestrator
		deps.Routing = orchestrator
	} else {
		logger.Warn("no providers configured, AI routes will answer 502")
	}

	a.health = newHealthChecker(store, accounts, a.manager, a.breakers)
	deps.Health = a.health

	a.server, err = server.NewServer(cfg.Server, cfg.Telemetry.Metrics.Path, deps)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Close stops background jobs and releases every store and provider.
func (a *app) Close() error {
	if a.retention != nil {
		a.retention.Stop()
	}

	var errs []error
	if a.providers != nil {
		errs = append(errs, a.providers.Close())
	}
	if a.manager != nil {
		errs = append(errs, a.manager.Close())
	}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.secrets != nil {
		errs = append(errs, a.secrets.Close())
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		errs = append(errs, a.tracer.Shutdown(ctx))
		cancel()
	}
	return errors.Join(errs...)
}

func newCounterStore(ctx context.Context, cfg config.LimitsConfig, logger *slog.Logger, m *limits.Metrics) storage.Store {
	storeCfg := storage.Config{
		RedisURL:      cfg.RedisURL,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	}
	if m != nil {
		storeCfg.OnModeChange = m.SetStoreMode
	}

	store := storage.NewStore(ctx, storeCfg)
	if m != nil {
		m.SetStoreMode(storage.ModeOf(store))
	}
	return store
}

// openAccountStore opens the configured quota backend.
func openAccountStore(cfg config.QuotaConfig) (quota.AccountStore, error) {
	switch cfg.Backend {
	case "memory":
		return quota.NewMemoryAccountStore(), nil
	case "sqlite":
		store, err := quota.NewSQLiteAccountStoreWithConfig(quota.SQLiteAccountStoreConfig{
			DBPath:             cfg.SQLite.Path,
			BusyTimeout:        cfg.SQLite.BusyTimeout,
			CheckpointInterval: cfg.SQLite.CheckpointInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open quota database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported quota backend: %s", cfg.Backend)
	}
}

func providerConfigs(list []config.ProviderConfig) []providers.ProviderConfig {
	out := make([]providers.ProviderConfig, 0, len(list))
	for _, p := range list {
		out = append(out, providers.ProviderConfig{
			Name:    p.Name,
			Type:    p.Type,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Model:   p.Model,
			Timeout: p.Timeout,
		})
	}
	return out
}

// retryOptions converts the resilience section. A negative MaxRetries
// disables retrying.
func retryOptions(r config.ResilienceConfig) retry.Options {
	opts := retry.DefaultOptions()
	opts.MaxRetries = max(r.MaxRetries, 0)
	opts.BaseDelay = r.BaseDelay
	opts.MaxDelay = r.MaxDelay
	opts.AttemptTimeout = r.AttemptTimeout
	opts.Jitter = !r.DisableJitter
	return opts
}

func newHealthChecker(store storage.Store, accounts quota.AccountStore, manager *limits.Manager, breakers *breaker.Registry) *health.Checker {
	checker := health.New(0)

	checker.RegisterCheck("rate_limit_store", func(ctx context.Context) error {
		if storage.ModeOf(store) == storage.ModeDegraded {
			return health.Degraded("shared counter store unreachable, using in-memory fallback")
		}
		return nil
	})

	checker.RegisterCheck("quota_store", func(ctx context.Context) error {
		_, err := accounts.GetAccount(ctx, healthCheckUser)
		if err == nil || errors.Is(err, quota.ErrUserNotFound) {
			return nil
		}
		return err
	})

	checker.RegisterCheck("providers", func(ctx context.Context) error {
		stats := breakers.Stats()
		if len(stats) == 0 {
			return health.Degraded("no providers configured")
		}
		open := 0
		for _, s := range stats {
			if s.State == breaker.StateOpen {
				open++
			}
		}
		switch {
		case open == len(stats):
			return errors.New("every provider circuit is open")
		case open > 0:
			return health.Degraded("%d of %d provider circuits open", open, len(stats))
		}
		return nil
	})

	checker.RegisterInfo("limits", func() any { return manager.Status() })
	checker.RegisterInfo("breakers", func() any { return breakers.Stats() })

	return checker
}
