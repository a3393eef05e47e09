package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/oanda"
)

var csvHeader = []string{"time", "instrument", "granularity", "complete", "volume", "o", "h", "l", "c"}

// FileName is the name CSV looks for, e.g. EUR_USD_H1.csv.
func FileName(inst market.InstrumentMeta, g oanda.Granularity) string {
	return fmt.Sprintf("%s_%s.csv", inst.Name, g)
}

// Download pages complete candles for inst from OANDA over [from, to) and
// writes them to w in the layout CSV reads. It returns the number of rows
// written.
func Download(ctx context.Context, client CandleGetter, inst market.InstrumentMeta, g oanda.Granularity, from, to time.Time, w io.Writer) (int, error) {
	step := g.Duration()
	if step == 0 {
		return 0, fmt.Errorf("unsupported granularity %q", g)
	}
	if !from.Before(to) {
		return 0, fmt.Errorf("from must be before to")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	var (
		total int
		last  time.Time
	)
	for cur := from; cur.Before(to); {
		page, err := client.GetCandles(ctx, oanda.CandlesRequest{
			Instrument:  inst.Name,
			Granularity: g,
			Count:       oanda.MaxCount,
			From:        cur,
		})
		if err != nil {
			return total, fmt.Errorf("fetch from %s: %w", cur.Format(time.RFC3339), err)
		}
		if len(page) == 0 {
			break
		}

		for _, c := range page {
			if !c.Time.Before(to) {
				break
			}
			if !last.IsZero() && !c.Time.After(last) {
				continue
			}
			if err := cw.Write(candleRow(inst, g, c)); err != nil {
				return total, err
			}
			last = c.Time
			total++
		}

		next := page[len(page)-1].Time.Add(step)
		if !next.After(cur) || len(page) < oanda.MaxCount {
			break
		}
		cur = next
	}

	cw.Flush()
	return total, cw.Error()
}

func candleRow(inst market.InstrumentMeta, g oanda.Granularity, c market.Candle) []string {
	p := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		c.Time.UTC().Format(time.RFC3339),
		inst.Name,
		string(g),
		"true",
		strconv.FormatFloat(c.Volume, 'f', 0, 64),
		p(c.Open), p(c.High), p(c.Low), p(c.Close),
	}
}
