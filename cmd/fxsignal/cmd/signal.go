package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxsignal/risk"
	fxsignal "github.com/rustyeddy/fxsignal/signal"
	"github.com/rustyeddy/fxsignal/sink"
)

var signalCmd = &cobra.Command{
	Use:   "signal [SYMBOL]",
	Short: "Evaluate one signal and write it to the signal file",
	Long: `Fetch prices, compute RSI and write BUY/SELL/HOLD to the signal file,
using a fresh session (no trades taken, balance at account size).

Example:
  fxsignal signal GBPUSD`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSignal,
}

func init() {
	rootCmd.AddCommand(signalCmd)
}

func runSignal(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	symbol := cfg.Signal.DefaultSymbol
	if len(args) > 0 {
		symbol = args[0]
	}

	gen := fxsignal.NewGenerator(cfg.Generator(), provider, sink.New(cfg.Sink.Path), log)
	res, err := gen.Generate(context.Background(), risk.NewSession(cfg.Account.Size), symbol)
	if err != nil {
		return fmt.Errorf("signal %s: %w", symbol, err)
	}

	out := cmd.OutOrStdout()
	if res.Status == fxsignal.Blocked {
		fmt.Fprintf(out, "BLOCKED %s: %s\n", res.Symbol, res.Reason)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", res.Direction, res.Symbol)
	fmt.Fprintf(out, "  RSI:   %.1f\n", res.RSI)
	fmt.Fprintf(out, "  Close: %g\n", res.LastClose)
	fmt.Fprintf(out, "  Size:  %.2f lots (risk $%.0f, SL %g pips, TP %g pips)\n",
		res.PositionSize, res.RiskAmount, res.StopLossPips, res.TakeProfitPips)
	fmt.Fprintf(out, "  Risk:  %s\n", res.RiskStatus)
	fmt.Fprintf(out, "  ID:    %s\n", res.ID)
	fmt.Fprintf(out, "✓ wrote %s to %s\n", res.Direction, cfg.Sink.Path)
	return nil
}
