package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "signal_id", "symbol", "direction", "lots", "rsi", "time"}
	equityHeader = []string{"time", "pnl", "balance", "daily_pnl", "overall_pnl"}
)

// CSVJournal appends to <dir>/trades.csv and <dir>/equity.csv, writing the
// header only when a file is new.
type CSVJournal struct {
	mu     sync.Mutex
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tf, tw, err := openAppend(filepath.Join(dir, "trades.csv"), tradeHeader)
	if err != nil {
		return nil, err
	}
	ef, ew, err := openAppend(filepath.Join(dir, "equity.csv"), equityHeader)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}
	return &CSVJournal{trades: tw, equity: ew, tf: tf, ef: ef}, nil
}

func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := flushRow(w, header); err != nil {
			_ = f.Close()
			return nil, nil, fmt.Errorf("write header %s: %w", path, err)
		}
	}
	return f, w, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return flushRow(j.trades, []string{
		t.TradeID,
		t.SignalID,
		t.Symbol,
		t.Direction,
		f(t.Lots, 2),
		f(t.RSI, 2),
		t.Time.UTC().Format(time.RFC3339),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return flushRow(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339),
		f(e.PnL, 2),
		f(e.Balance, 2),
		f(e.DailyPnL, 2),
		f(e.OverallPnL, 2),
	})
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades.Flush()
	j.equity.Flush()
	return errors.Join(
		j.trades.Error(),
		j.equity.Error(),
		j.tf.Close(),
		j.ef.Close(),
	)
}

func flushRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64, prec int) string {
	return strconv.FormatFloat(x, 'f', prec, 64)
}
