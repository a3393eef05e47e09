package signal

import (
	"errors"

	"github.com/rustyeddy/fxsignal/feed"
	"github.com/rustyeddy/fxsignal/indicators"
	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/sink"
)

// Error kinds, used as metric labels and by the chat replies.
const (
	KindUnknownInstrument = "unknown_instrument"
	KindDataUnavailable   = "data_unavailable"
	KindInsufficientData  = "insufficient_data"
	KindInvalidData       = "invalid_data"
	KindSinkWrite         = "sink_write"
	KindOther             = "other"
)

// ErrorKind classifies an error returned by Generate.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, market.ErrUnknownInstrument):
		return KindUnknownInstrument
	case errors.Is(err, feed.ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, indicators.ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, indicators.ErrNonFinite):
		return KindInvalidData
	case errors.Is(err, sink.ErrWrite):
		return KindSinkWrite
	}
	return KindOther
}
