package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/bulwark/pkg/cli"
	"mercator-hq/bulwark/pkg/config"
	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration with environment overrides applied, validate it
and print the effective admission settings.

Examples:
  # Validate the built-in defaults
  bulwark validate

  # Validate a config file
  bulwark validate --config config.yaml

  # Machine-readable summary
  bulwark validate --config config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// configSummary is the effective admission configuration.
type configSummary struct {
	ListenAddress string             `json:"listenAddress"`
	StoreMode     string             `json:"storeMode"`
	QuotaBackend  string             `json:"quotaBackend"`
	Policies      []ratelimit.Policy `json:"policies"`
	Tiers         map[string]int64   `json:"tiers"`
	Actions       map[string]int64   `json:"actions"`
	Providers     []string           `json:"providers"`
	MaxRetries    int                `json:"maxRetries"`
	Threshold     int                `json:"failureThreshold"`
	ResetTimeout  string             `json:"resetTimeout"`
	AdminEnabled  bool               `json:"adminEnabled"`
	Metrics       bool               `json:"metrics"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return cli.Print(cmd.OutOrStdout(), format, summarize(cfg))
}

func summarize(cfg *config.Config) configSummary {
	s := configSummary{
		ListenAddress: cfg.Server.ListenAddress,
		StoreMode:     "memory",
		QuotaBackend:  cfg.Quota.Backend,
		Policies:      ratelimit.DefaultPolicies(),
		Tiers:         make(map[string]int64),
		Actions:       make(map[string]int64),
		MaxRetries:    max(cfg.Resilience.MaxRetries, 0),
		Threshold:     cfg.Resilience.FailureThreshold,
		ResetTimeout:  cfg.Resilience.ResetTimeout.String(),
		AdminEnabled:  cfg.Server.AdminToken != "",
		Metrics:       cfg.Telemetry.Metrics.IsEnabled(),
	}
	if cfg.Limits.RedisURL != "" {
		s.StoreMode = "shared"
	}
	for _, t := range []quota.Tier{quota.TierFree, quota.TierPro, quota.TierPremium} {
		s.Tiers[string(t)] = t.Limit()
	}
	for _, a := range []quota.Action{quota.ActionAnalysis, quota.ActionStorybook, quota.ActionColoring, quota.ActionChatbot} {
		cost, _ := a.Cost()
		s.Actions[string(a)] = cost
	}
	for _, p := range cfg.Providers {
		s.Providers = append(s.Providers, p.Name)
	}
	return s
}

func (s configSummary) RenderText(w io.Writer) error {
	fmt.Fprintln(w, "✓ Configuration valid")
	fmt.Fprintf(w, "Listen address: %s\n", s.ListenAddress)
	fmt.Fprintf(w, "Counter store:  %s\n", s.StoreMode)
	fmt.Fprintf(w, "Quota backend:  %s\n", s.QuotaBackend)
	fmt.Fprintf(w, "Admin API:      %s\n", enabled(s.AdminEnabled))
	fmt.Fprintf(w, "Metrics:        %s\n", enabled(s.Metrics))
	fmt.Fprintln(w)

	tw := cli.NewTable(w)
	fmt.Fprintln(tw, "CLASS\tLIMIT\tWINDOW")
	for _, p := range s.Policies {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.Limit, formatWindow(p.Window))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if len(s.Providers) == 0 {
		fmt.Fprintln(w, "Providers: none (AI routes answer 502)")
	} else {
		fmt.Fprintf(w, "Providers (failover order): %v\n", s.Providers)
	}
	fmt.Fprintf(w, "Retries: %d, breaker opens after %d failures for %s\n",
		s.MaxRetries, s.Threshold, s.ResetTimeout)
	return nil
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dm", int(d/time.Minute))
}
