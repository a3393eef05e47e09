package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxsignal/feed"
	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/oanda"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch SYMBOL...",
	Short: "Download OANDA candles into the CSV feed directory",
	Long: `Download completed mid candles from OANDA and write them as
<dir>/<EUR_USD>_<H1>.csv, the files read when feed.source is csv.

Requires OANDA_TOKEN.

Example:
  fxsignal fetch EURUSD GBPUSD --days 60 --dir data`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

var (
	fetchDir  string
	fetchDays int
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "output directory (default feed.csv_dir, else current directory)")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 28, "calendar days of history to download")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Feed.OandaToken == "" {
		return fmt.Errorf("OANDA_TOKEN is not set")
	}
	if fetchDays <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	dir := fetchDir
	if dir == "" {
		dir = cfg.Feed.CSVDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	client := oanda.NewClient(cfg.Feed.OandaToken, cfg.Feed.Practice, 30*time.Second)
	g := oanda.Granularity(cfg.Signal.Granularity)
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -fetchDays)

	out := cmd.OutOrStdout()
	for _, sym := range args {
		inst, err := market.Lookup(sym)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, feed.FileName(inst, g))
		n, err := downloadTo(cmd.Context(), client, inst, g, from, to, path)
		if err != nil {
			return fmt.Errorf("%s: %w", inst.Symbol(), err)
		}
		fmt.Fprintf(out, "✓ %s: %d candles -> %s\n", inst.Symbol(), n, path)
	}
	return nil
}

func downloadTo(ctx context.Context, client *oanda.Client, inst market.InstrumentMeta, g oanda.Granularity, from, to time.Time, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := feed.Download(ctx, client, inst, g, from, to, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
