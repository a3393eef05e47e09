package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/fxsignal/bot"
	"github.com/rustyeddy/fxsignal/internal/trace"
	"github.com/rustyeddy/fxsignal/journal"
	"github.com/rustyeddy/fxsignal/metrics"
	"github.com/rustyeddy/fxsignal/risk"
	fxsignal "github.com/rustyeddy/fxsignal/signal"
	"github.com/rustyeddy/fxsignal/sink"
	"github.com/rustyeddy/fxsignal/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Long-poll Telegram and answer /signal, /dashboard, /result and /help.

Example:
  TELEGRAM_BOT_TOKEN=... OANDA_TOKEN=... fxsignal bot -c fxsignal.yaml`,
	RunE: runBot,
}

var botPendingTTL time.Duration

func init() {
	rootCmd.AddCommand(botCmd)
	botCmd.Flags().DurationVar(&botPendingTTL, "confirm-ttl", 4*time.Hour, "how long an Executed button stays valid (0 = forever)")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := trace.Init(cfg.Trace.Enabled, os.Stderr, version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("trace shutdown", zap.Error(err))
		}
	}()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	var j journal.Journal = journal.Nop{}
	if cfg.Journal.Dir != "" {
		cj, err := journal.NewCSV(cfg.Journal.Dir)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		j = cj
	}
	defer j.Close()

	sess := risk.NewSession(cfg.Account.Size)
	gen := fxsignal.NewGenerator(cfg.Generator(), provider, sink.New(cfg.Sink.Path), log, fxsignal.WithMetrics(m))

	pollTimeout := time.Duration(cfg.Telegram.PollTimeout) * time.Second
	b := bot.New(bot.Config{
		Limits:        cfg.Limits(),
		DefaultSymbol: cfg.Signal.DefaultSymbol,
		Granularity:   cfg.Signal.Granularity,
		PollTimeout:   pollTimeout,
		PendingTTL:    botPendingTTL,
	}, telegram.NewClient(cfg.Telegram.Token, pollTimeout), gen, sess, log,
		bot.WithJournal(j), bot.WithMetrics(m))

	log.Info("fxsignal ready",
		zap.Float64("account", cfg.Account.Size),
		zap.String("feed", cfg.Feed.Source),
		zap.String("signal_file", cfg.Sink.Path))
	return b.Run(ctx)
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
