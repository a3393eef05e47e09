package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/fxsignal/config"
	"github.com/rustyeddy/fxsignal/feed"
	"github.com/rustyeddy/fxsignal/internal/logger"
	"github.com/rustyeddy/fxsignal/oanda"
)

var rootCmd = &cobra.Command{
	Use:   "fxsignal",
	Short: "RSI signal bot for funded FX accounts",
	Long: `fxsignal answers chat requests with an RSI based BUY/SELL/HOLD
recommendation, guarded by daily drawdown, overall drawdown and per pair
trade limits. The direction is written to a signal file that an MT5 expert
advisor polls.

Secrets come from the environment (or a .env file):
  TELEGRAM_BOT_TOKEN   Telegram Bot API token
  OANDA_TOKEN          OANDA v20 API token`,
	SilenceUsage: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
}

// loadConfig reads the config and builds the process logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newProvider(cfg *config.Config) (feed.Provider, error) {
	switch cfg.Feed.Source {
	case "csv":
		return feed.CSV{Dir: cfg.Feed.CSVDir}, nil
	case "oanda":
		if cfg.Feed.OandaToken == "" {
			return nil, fmt.Errorf("OANDA_TOKEN is not set")
		}
		return feed.NewOANDA(oanda.NewClient(cfg.Feed.OandaToken, cfg.Feed.Practice, cfg.FeedTimeout())), nil
	}
	return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
}
