package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/bulwark/pkg/cli"
	"mercator-hq/bulwark/pkg/config"
	"mercator-hq/bulwark/pkg/limits/quota"
)

var quotaFlags struct {
	user    string
	tier    string
	action  string
	history int
	format  string
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Manage token quota accounts",
	Long: `Create, inspect and charge quota accounts directly in the SQLite
account store. The proxy does not need to be running.

Tiers and monthly allowances:
  free     50 tokens
  pro      500 tokens
  premium  unlimited

Action costs:
  analysis 10, storybook 15, coloring 8, chatbot 2`,
}

var quotaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a quota account",
	Long: `Create a quota account for a user. The first period ends on the first
day of next month (UTC).

Examples:
  bulwark quota create --user u-123 --tier pro`,
	RunE: createAccount,
}

var quotaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a quota account",
	Long: `Show a user's tier, usage and period reset time, with the most recent
reservations.

Examples:
  bulwark quota show --user u-123
  bulwark quota show --user u-123 --history 50 --format json`,
	RunE: showAccount,
}

var quotaReserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Charge an action to a quota account",
	Long: `Reserve the cost of an action exactly as the proxy would, including
the monthly rollover. Useful for manual corrections and testing.

Examples:
  bulwark quota reserve --user u-123 --action storybook`,
	RunE: reserveAction,
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.AddCommand(quotaCreateCmd, quotaShowCmd, quotaReserveCmd)

	quotaCmd.PersistentFlags().StringVarP(&quotaFlags.user, "user", "u", "", "user ID (required)")
	quotaCmd.PersistentFlags().StringVar(&quotaFlags.format, "format", "text", "output format: text, json")
	_ = quotaCmd.MarkPersistentFlagRequired("user")

	quotaCreateCmd.Flags().StringVar(&quotaFlags.tier, "tier", string(quota.TierFree), "tier: free, pro, premium")
	quotaShowCmd.Flags().IntVar(&quotaFlags.history, "history", 10, "number of recent reservations to show")
	quotaReserveCmd.Flags().StringVar(&quotaFlags.action, "action", "", "action: analysis, storybook, coloring, chatbot (required)")
	_ = quotaReserveCmd.MarkFlagRequired("action")
}

// openQuotaStore opens the SQLite account store named by the config.
func openQuotaStore() (*quota.SQLiteAccountStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openSQLiteQuotaStore(cfg.Quota)
}

func openSQLiteQuotaStore(cfg config.QuotaConfig) (*quota.SQLiteAccountStore, error) {
	if cfg.Backend != "sqlite" {
		return nil, fmt.Errorf("quota commands need the sqlite backend, config uses %q", cfg.Backend)
	}
	return quota.NewSQLiteAccountStoreWithConfig(quota.SQLiteAccountStoreConfig{
		DBPath:      cfg.SQLite.Path,
		BusyTimeout: cfg.SQLite.BusyTimeout,
	})
}

func createAccount(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(quotaFlags.format)
	if err != nil {
		return err
	}
	tier, err := quota.ParseTier(quotaFlags.tier)
	if err != nil {
		return err
	}

	store, err := openQuotaStore()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now().UTC()
	acct := quota.Account{
		UserID:        quotaFlags.user,
		Tier:          tier,
		PeriodResetAt: quota.FirstPeriodReset(now),
		CreatedAt:     now,
	}
	if err := store.CreateAccount(cmd.Context(), acct); err != nil {
		if errors.Is(err, quota.ErrAccountExists) {
			return fmt.Errorf("account %q already exists", quotaFlags.user)
		}
		return cli.NewCommandError("quota create", err)
	}

	return cli.Print(cmd.OutOrStdout(), format, newAccountView(acct))
}

func showAccount(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(quotaFlags.format)
	if err != nil {
		return err
	}

	store, err := openQuotaStore()
	if err != nil {
		return err
	}
	defer store.Close()

	acct, err := store.GetAccount(cmd.Context(), quotaFlags.user)
	if err != nil {
		return cli.NewCommandError("quota show", err)
	}

	view := newAccountView(*acct)
	if quotaFlags.history > 0 {
		view.Reservations, err = store.RecentReservations(cmd.Context(), quotaFlags.user, quotaFlags.history)
		if err != nil {
			return cli.NewCommandError("quota show", err)
		}
	}

	return cli.Print(cmd.OutOrStdout(), format, view)
}

func reserveAction(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(quotaFlags.format)
	if err != nil {
		return err
	}
	action, err := quota.ParseAction(quotaFlags.action)
	if err != nil {
		return err
	}

	store, err := openQuotaStore()
	if err != nil {
		return err
	}
	defer store.Close()

	decision, err := quota.NewLedger(store).ReserveAction(cmd.Context(), quotaFlags.user, action)
	if err != nil {
		return cli.NewCommandError("quota reserve", err)
	}

	if err := cli.Print(cmd.OutOrStdout(), format, decisionView(decision)); err != nil {
		return err
	}
	return decision.Err()
}

// accountView is an account with its limits resolved for display.
type accountView struct {
	quota.Account
	TokenLimit   int64               `json:"tokenLimit"`
	Remaining    int64               `json:"remaining"`
	Reservations []quota.Reservation `json:"reservations,omitempty"`
}

func newAccountView(acct quota.Account) accountView {
	return accountView{
		Account:    acct,
		TokenLimit: acct.TokenLimit(),
		Remaining:  acct.Remaining(),
	}
}

func (v accountView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "User:         %s\n", v.UserID)
	fmt.Fprintf(w, "Tier:         %s\n", v.Tier)
	fmt.Fprintf(w, "Used:         %d / %s\n", v.TokensUsed, formatLimit(v.TokenLimit))
	fmt.Fprintf(w, "Remaining:    %s\n", formatLimit(v.Remaining))
	fmt.Fprintf(w, "Period reset: %s\n", v.PeriodResetAt.Format(time.RFC3339))

	if len(v.Reservations) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := cli.NewTable(w)
	fmt.Fprintln(tw, "TIME\tCOST\tRESULT\tUSED\tRESET")
	for _, r := range v.Reservations {
		result := "allowed"
		if !r.Allowed {
			result = "denied"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%t\n",
			r.CreatedAt.Format(time.RFC3339), r.Cost, result, r.TokensUsed, r.WasReset)
	}
	return tw.Flush()
}

// decisionView renders a reservation outcome.
type decisionView quota.Decision

func (d decisionView) RenderText(w io.Writer) error {
	result := "allowed"
	if !d.Allowed {
		result = "denied"
	}
	fmt.Fprintf(w, "Reservation %s: cost %d, used %d / %s, remaining %s\n",
		result, d.Cost, d.TokensUsed, formatLimit(d.TokenLimit), formatLimit(d.Remaining))
	if d.WasReset {
		fmt.Fprintf(w, "Period rolled over, next reset %s\n", d.PeriodResetAt.Format(time.RFC3339))
	}
	return nil
}

func formatLimit(n int64) string {
	if n == quota.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}
