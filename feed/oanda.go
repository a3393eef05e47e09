package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/oanda"
)

// CandleGetter is implemented by *oanda.Client.
type CandleGetter interface {
	GetCandles(ctx context.Context, req oanda.CandlesRequest) ([]market.Candle, error)
}

// OANDA fetches mid closes from the OANDA v20 REST API.
type OANDA struct {
	Client CandleGetter
	Now    func() time.Time
}

// NewOANDA wraps client.
func NewOANDA(client *oanda.Client) *OANDA {
	return &OANDA{Client: client, Now: time.Now}
}

func (o *OANDA) Closes(ctx context.Context, req Request) ([]float64, error) {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	to := now().UTC()

	candles, err := o.Client.GetCandles(ctx, oanda.CandlesRequest{
		Instrument:  req.Instrument.Name,
		Granularity: req.Granularity,
		From:        to.Add(-req.Lookback),
		To:          to,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, req.Instrument.Symbol(), err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s: no candles returned", ErrDataUnavailable, req.Instrument.Symbol())
	}
	return market.Closes(candles), nil
}
