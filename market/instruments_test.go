package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"EURUSD", "eurusd", " EUR_USD ", "EUR/USD", "EURUSD=X"} {
		meta, err := Lookup(in)
		require.NoError(t, err, in)
		assert.Equal(t, "EUR_USD", meta.Name)
		assert.Equal(t, "EURUSD", meta.Symbol())
	}

	_, err := Lookup("FOOBAR")
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestPipSize(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0001, Instruments["EURUSD"].PipSize(), 1e-12)
	assert.InDelta(t, 0.01, Instruments["USDJPY"].PipSize(), 1e-12)
}

func TestPipValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		symbol   string
		price    float64
		fallback float64
		want     float64
	}{
		{"usd quote", "EURUSD", 1.08, 7, 10},
		{"usd base", "USDJPY", 150, 7, 1000.0 / 150},
		{"usd base without price", "USDJPY", 0, 7, 7},
		{"cross", "EURGBP", 0.85, 12.5, 12.5},
		{"gold", "XAUUSD", 2350, 10, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Instruments[tt.symbol].PipValue(tt.price, tt.fallback)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestUnits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float64(StandardLot), Instruments["EURUSD"].Units())
	assert.Equal(t, float64(MetalLot), Instruments["XAUUSD"].Units())

	bare := InstrumentMeta{BaseCurrency: "EUR", QuoteCurrency: "USD", PipLocation: -4}
	assert.Equal(t, float64(StandardLot), bare.Units())
	assert.InDelta(t, 10, bare.PipValue(1.08, 7), 1e-9)
}

func TestCloses(t *testing.T) {
	got := Closes([]Candle{{Close: 1.1}, {Close: 1.2}, {Close: 1.15}})
	assert.Equal(t, []float64{1.1, 1.2, 1.15}, got)
}
