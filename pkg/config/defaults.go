package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 1048576 // 1MB

	// Limits defaults
	DefaultSweepInterval = time.Minute

	// Quota defaults
	DefaultQuotaBackend            = "sqlite"
	DefaultQuotaSQLitePath         = "data/quota.db"
	DefaultQuotaBusyTimeout        = 5 * time.Second
	DefaultQuotaCheckpointInterval = 5 * time.Minute
	DefaultRetentionDays           = 90
	DefaultPruneSchedule           = "0 3 * * *"

	// Resilience defaults
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
	DefaultMaxRetries       = 3
	DefaultBaseDelay        = time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultAttemptTimeout   = 30 * time.Second

	// Provider defaults
	DefaultProviderTimeout = 60 * time.Second

	// Secrets defaults
	DefaultSecretsEnvPrefix = "BULWARK_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "bulwark"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 1.0
	DefaultTracingExporter  = "otlp"
	DefaultTracingService   = "bulwark"
	DefaultOTLPTimeout      = 10 * time.Second
)

// DefaultRequestDurationBuckets covers fast admission rejections up to
// slow failover sequences.
var DefaultRequestDurationBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Limits defaults
	if cfg.Limits.SweepInterval == 0 {
		cfg.Limits.SweepInterval = DefaultSweepInterval
	}

	// Quota defaults
	if cfg.Quota.Backend == "" {
		cfg.Quota.Backend = DefaultQuotaBackend
	}
	if cfg.Quota.SQLite.Path == "" {
		cfg.Quota.SQLite.Path = DefaultQuotaSQLitePath
	}
	if cfg.Quota.SQLite.BusyTimeout == 0 {
		cfg.Quota.SQLite.BusyTimeout = DefaultQuotaBusyTimeout
	}
	if cfg.Quota.SQLite.CheckpointInterval == 0 {
		cfg.Quota.SQLite.CheckpointInterval = DefaultQuotaCheckpointInterval
	}
	if cfg.Quota.Retention.Days == 0 {
		cfg.Quota.Retention.Days = DefaultRetentionDays
	}
	if cfg.Quota.Retention.PruneSchedule == "" {
		cfg.Quota.Retention.PruneSchedule = DefaultPruneSchedule
	}

	applyResilienceDefaults(&cfg.Resilience)

	// Provider defaults - applied to each provider
	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = DefaultProviderTimeout
		}
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	applyTracingDefaults(&cfg.Telemetry.Tracing)
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
}

func applyResilienceDefaults(r *ResilienceConfig) {
	if r.FailureThreshold == 0 {
		r.FailureThreshold = DefaultFailureThreshold
	}
	if r.ResetTimeout == 0 {
		r.ResetTimeout = DefaultResetTimeout
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = DefaultBaseDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = DefaultMaxDelay
	}
	if r.AttemptTimeout == 0 {
		r.AttemptTimeout = DefaultAttemptTimeout
	}
}

// NewDefault returns a configuration with every default applied and no
// providers. It is what `bulwark run` uses when no config file is given.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func applyTracingDefaults(cfg *TracingConfig) {
	if cfg.Sampler == "" {
		cfg.Sampler = DefaultTracingSampler
	}
	if cfg.SampleRatio == 0 && cfg.Sampler == DefaultTracingSampler {
		cfg.SampleRatio = DefaultTracingRatio
	}
	if cfg.Exporter == "" {
		cfg.Exporter = DefaultTracingExporter
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultTracingService
	}
	if cfg.OTLP.Timeout == 0 {
		cfg.OTLP.Timeout = DefaultOTLPTimeout
	}
}
