package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/bulwark/pkg/config"
	"mercator-hq/bulwark/pkg/limits"
	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/proxy/handlers"
	"mercator-hq/bulwark/pkg/proxy/middleware"
	"mercator-hq/bulwark/pkg/resilience/breaker"
	"mercator-hq/bulwark/pkg/routing"
	"mercator-hq/bulwark/pkg/security/auth"
	"mercator-hq/bulwark/pkg/telemetry/health"
	"mercator-hq/bulwark/pkg/telemetry/metrics"
	"mercator-hq/bulwark/pkg/telemetry/tracing"
)

// Deps are the components the server routes requests to.
type Deps struct {
	// Limits owns the rate limiters and the quota ledger. Required.
	Limits *limits.Manager

	// Completer sends AI requests through the provider failover chain.
	// Nil makes every AI route answer 502.
	Completer handlers.Completer

	// Routing exposes failover counters on the admin API. Optional.
	Routing handlers.RoutingStats

	// Breakers is the provider circuit breaker registry. Required.
	Breakers *breaker.Registry

	// Health serves /healthz and /livez. Nil creates an empty checker.
	Health *health.Checker

	// Metrics serves the metrics endpoint and records HTTP metrics.
	// Nil disables both.
	Metrics *metrics.Collector

	// LimitMetrics records rate limit checks. Optional.
	LimitMetrics *limits.Metrics

	// Tracer records a server span per request and a span per admission
	// check. Nil disables tracing.
	Tracer *tracing.Tracer

	// AdminToken resolves the admin bearer token per request. Nil uses
	// ServerConfig.AdminToken.
	AdminToken middleware.TokenSource

	// Logger is the service logger. Default: slog.Default()
	Logger *slog.Logger

	// Version, Commit and BuildTime are reported by /version.
	Version, Commit, BuildTime string
}

// Server is the HTTP front end of the admission layer.
type Server struct {
	config       config.ServerConfig
	metricsPath  string
	deps         Deps
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. metricsPath is where the Prometheus endpoint
// is mounted when deps.Metrics is set.
func NewServer(cfg config.ServerConfig, metricsPath string, deps Deps) (*Server, error) {
	if deps.Limits == nil {
		return nil, errors.New("server: limits manager is required")
	}
	if deps.Breakers == nil {
		return nil, errors.New("server: breaker registry is required")
	}
	if deps.Completer == nil {
		deps.Completer = noProviders{}
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Server{
		config:       cfg,
		metricsPath:  metricsPath,
		deps:         deps,
		logger:       deps.Logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the HTTP server and blocks until ctx is cancelled, a
// SIGINT/SIGTERM arrives, Stop is called, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	if len(s.config.APIKeys) == 0 && !s.config.TrustedUserHeader {
		s.logger.Warn("no API keys configured and the user header is not trusted, metered routes will reject every request")
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server, waiting up to
// ShutdownTimeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	d := s.deps

	opts := middleware.Options{Logger: d.Logger}
	hcfg := handlers.Config{MaxBodyBytes: s.config.MaxBodyBytes, Logger: d.Logger}
	// Assigned only when set so the interfaces never hold typed nils.
	if d.LimitMetrics != nil {
		opts.Checks = d.LimitMetrics
	}
	if d.Metrics != nil {
		opts.Rejections = d.Metrics
		hcfg.Fallbacks = d.Metrics
	}
	if d.Tracer != nil {
		opts.Tracer = d.Tracer.Tracer()
	}

	rateLimit := func(class string) func(http.Handler) http.Handler {
		return middleware.RateLimit(d.Limits, middleware.Class(class), opts)
	}
	ledger := d.Limits.Ledger()
	authn := auth.NewAPIKeyMiddleware(apiKeyValidator(s.config.APIKeys), auth.Options{
		TrustedUserHeader: s.config.TrustedUserHeader,
		Logger:            d.Logger,
	})

	mux.Handle("POST /v1/chat", middleware.Chain(
		handlers.NewChatHandler(d.Completer, hcfg),
		rateLimit(ratelimit.ClassAI),
		authn.Handle,
		middleware.Quota(ledger, quota.ActionChatbot, opts),
	))
	mux.Handle("POST /v1/generate/{action}", middleware.Chain(
		handlers.NewGenerateHandler(d.Completer, hcfg),
		rateLimit(ratelimit.ClassAI),
		authn.Handle,
		middleware.QuotaFor(ledger, middleware.ActionFromPath, opts),
	))
	mux.Handle("POST /auth/login", middleware.Chain(
		handlers.NewLoginHandler(s.config.MaxBodyBytes),
		rateLimit(ratelimit.ClassAuth),
	))

	requireAdmin := middleware.RequireBearer(s.config.AdminToken)
	if d.AdminToken != nil {
		requireAdmin = middleware.RequireBearerFrom(d.AdminToken, opts)
	}
	admin := handlers.NewAdminHandler(d.Limits, d.Breakers, d.Logger)
	if d.Routing != nil {
		admin.WithRouting(d.Routing)
	}
	admin.Register(mux, func(h http.Handler) http.Handler {
		return middleware.Chain(h, rateLimit(ratelimit.ClassGeneral), requireAdmin)
	})

	mux.HandleFunc("GET /healthz", d.Health.ReadinessHandler())
	mux.HandleFunc("GET /livez", d.Health.LivenessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(d.Version, d.Commit, d.BuildTime))
	if d.Metrics != nil && s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, d.Metrics.Handler())
	}

	var observer middleware.RequestObserver
	if d.Metrics != nil {
		observer = d.Metrics
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RecoveryMiddleware(d.Logger),
		middleware.RequestIDMiddleware,
	}
	// The tracing span must already exist when the logging middleware
	// annotates it with the matched route.
	if d.Tracer != nil && d.Tracer.Enabled() {
		chain = append(chain, tracing.Middleware(d.Tracer))
	}
	chain = append(chain, middleware.LoggingMiddleware(d.Logger, observer))
	return middleware.Chain(mux, chain...)
}

func apiKeyValidator(keys []config.APIKeyConfig) *auth.APIKeyValidator {
	infos := make([]*auth.APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, &auth.APIKeyInfo{Key: k.Key, UserID: k.UserID, Enabled: !k.Disabled})
	}
	return auth.NewAPIKeyValidator(infos)
}

// noProviders answers every completion with ErrNoProvidersConfigured.
type noProviders struct{}

func (noProviders) Complete(context.Context, *providers.CompletionRequest) (*routing.Result, error) {
	return nil, routing.ErrNoProvidersConfigured
}
