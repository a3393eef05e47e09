package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSV reads candles from files named <dir>/<EUR_USD>_<H1>.csv using the
// canonical candle layout written by OANDA downloads:
//
//	time,instrument,granularity,complete,volume,o,h,l,c
//
// The lookback window is measured back from the newest row so that fixed
// datasets keep producing signals.
type CSV struct {
	Dir string
}

func (c CSV) path(req Request) string {
	return filepath.Join(c.Dir, FileName(req.Instrument, req.Granularity))
}

func (c CSV) Closes(ctx context.Context, req Request) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	p := c.path(req)
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer f.Close()

	times, closes, err := readCandleCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, p, err)
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("%w: %s: no complete candles", ErrDataUnavailable, p)
	}

	start := 0
	if req.Lookback > 0 {
		cutoff := times[len(times)-1].Add(-req.Lookback)
		for start < len(times) && times[start].Before(cutoff) {
			start++
		}
	}
	return closes[start:], nil
}

func readCandleCSV(r io.Reader) ([]time.Time, []float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 9

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != "time" || header[8] != "c" {
		return nil, nil, fmt.Errorf("unexpected header %v", header)
	}

	var (
		times  []time.Time
		closes []float64
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if row[3] != "true" {
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parse time: %w", line, err)
		}
		v, err := strconv.ParseFloat(row[8], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parse close: %w", line, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("line %d: close %q is not a finite number", line, row[8])
		}
		if n := len(times); n > 0 && !t.After(times[n-1]) {
			return nil, nil, fmt.Errorf("line %d: time %s not after previous row", line, row[0])
		}
		times = append(times, t)
		closes = append(closes, v)
	}
	return times, closes, nil
}
