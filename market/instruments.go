// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// StandardLot is the number of base-currency units in one FX lot.
const StandardLot = 100000

// MetalLot is the ounces in one lot of gold.
const MetalLot = 100

// ErrUnknownInstrument is returned for symbols missing from Instruments.
var ErrUnknownInstrument = errors.New("unknown instrument")

type InstrumentMeta struct {
	Name          string // OANDA style, "EUR_USD"
	BaseCurrency  string
	QuoteCurrency string
	PipLocation   int
	ContractSize  float64 // units per lot, StandardLot when zero
}

// Symbol returns the compact chat style name, "EURUSD".
func (m InstrumentMeta) Symbol() string {
	return m.BaseCurrency + m.QuoteCurrency
}

// PipSize returns the price increment of one pip, 0.0001 for EUR_USD.
func (m InstrumentMeta) PipSize() float64 {
	return math.Pow(10, float64(m.PipLocation))
}

// Units returns the contract size of one lot.
func (m InstrumentMeta) Units() float64 {
	if m.ContractSize > 0 {
		return m.ContractSize
	}
	return StandardLot
}

// PipValue returns the account (USD) value of one pip on one lot.
// USD quoted pairs have a fixed pip value; USD based pairs are converted with
// the current price. Crosses have no direct conversion and return fallback.
func (m InstrumentMeta) PipValue(price, fallback float64) float64 {
	perLot := m.PipSize() * m.Units()
	switch {
	case m.QuoteCurrency == "USD":
		return perLot
	case m.BaseCurrency == "USD" && price > 0:
		return perLot / price
	default:
		return fallback
	}
}

func pair(base, quote string, loc int) InstrumentMeta {
	return InstrumentMeta{
		Name:          base + "_" + quote,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		PipLocation:   loc,
		ContractSize:  StandardLot,
	}
}

func metal(base string, loc int, size float64) InstrumentMeta {
	m := pair(base, "USD", loc)
	m.ContractSize = size
	return m
}

// Instruments is keyed by compact symbol.
var Instruments = map[string]InstrumentMeta{
	"EURUSD": pair("EUR", "USD", -4),
	"GBPUSD": pair("GBP", "USD", -4),
	"AUDUSD": pair("AUD", "USD", -4),
	"NZDUSD": pair("NZD", "USD", -4),
	"USDJPY": pair("USD", "JPY", -2),
	"USDCHF": pair("USD", "CHF", -4),
	"USDCAD": pair("USD", "CAD", -4),
	"EURGBP": pair("EUR", "GBP", -4),
	"EURJPY": pair("EUR", "JPY", -2),
	"GBPJPY": pair("GBP", "JPY", -2),
	"XAUUSD": metal("XAU", -2, MetalLot),
}

// Lookup accepts "EURUSD", "eurusd", "EUR_USD" or "EUR/USD".
func Lookup(symbol string) (InstrumentMeta, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("_", "", "/", "", "=X", "").Replace(s)
	meta, ok := Instruments[s]
	if !ok {
		return InstrumentMeta{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, symbol)
	}
	return meta, nil
}

// Symbols returns the supported compact symbols, sorted.
func Symbols() []string {
	out := make([]string, 0, len(Instruments))
	for s := range Instruments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
