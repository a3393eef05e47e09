package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxsignal/risk"
	"github.com/rustyeddy/fxsignal/sink"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show account limits and the current signal file",
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := sink.New(cfg.Sink.Path).Read()
	if err != nil {
		return err
	}
	if token == "" {
		token = "(none)"
	}

	a := cfg.Account
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Account:        $%.0f\n", a.Size)
	fmt.Fprintf(out, "Daily DD:       $%.0f (halt at $%.0f)\n", a.DailyDrawdown, a.DailyDrawdown*risk.DailyDrawdownBuffer)
	fmt.Fprintf(out, "Overall DD:     $%.0f (halt at $%.0f)\n", a.OverallDrawdown, a.OverallDrawdown*risk.OverallDrawdownBuffer)
	fmt.Fprintf(out, "Risk/trade:     $%.0f (SL %g pips, TP %g pips)\n", a.RiskPerTrade, a.MinStopPips, a.TakeProfitPips)
	fmt.Fprintf(out, "Trades/pair:    %d\n", a.MaxTradesPerPair)
	fmt.Fprintf(out, "Max spread:     %g pips\n", a.MaxSpread)
	fmt.Fprintf(out, "Feed:           %s\n", cfg.Feed.Source)
	fmt.Fprintf(out, "Signal file:    %s = %s\n", cfg.Sink.Path, token)
	return nil
}
