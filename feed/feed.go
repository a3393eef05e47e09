// Package feed supplies closing-price series for the signal generator.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/oanda"
)

// ErrDataUnavailable wraps every failure to produce a price series.
var ErrDataUnavailable = errors.New("price data unavailable")

// Request describes the series wanted by the generator.
type Request struct {
	Instrument  market.InstrumentMeta
	Lookback    time.Duration
	Granularity oanda.Granularity
}

// Provider returns closes for an instrument, oldest first.
type Provider interface {
	Closes(ctx context.Context, req Request) ([]float64, error)
}
