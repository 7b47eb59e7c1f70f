package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"mercator-hq/bulwark/pkg/cli"
	"mercator-hq/bulwark/pkg/config"
	"mercator-hq/bulwark/pkg/limits/storage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Bulwark proxy server",
	Long: `Start the Bulwark proxy server with the specified configuration.

The server listens on the configured address. Every request passes the
rate limiter for its class; AI routes also reserve tokens from the user's
monthly quota before being sent through the provider failover chain.

Examples:
  # Start with built-in defaults
  bulwark run

  # Start with custom config
  bulwark run --config /etc/bulwark/config.yaml

  # Override listen address
  bulwark run --listen 0.0.0.0:8080

  # Validate config without starting server
  bulwark run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	logger, err := newLogger(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	logger.Info("bulwark starting",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"store_mode", storage.ModeOf(a.manager.Store()),
		"quota_backend", cfg.Quota.Backend,
		"providers", len(cfg.Providers),
		"metrics", cfg.Telemetry.Metrics.IsEnabled(),
	)

	if err := a.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	logger.Info("bulwark stopped")
	return nil
}
