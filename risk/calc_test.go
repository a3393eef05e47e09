package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		risk     float64
		stop     float64
		pipValue float64
		want     float64
	}{
		{"15k account default", 75, 15, 10, 0.50},
		{"rounds to cents", 100, 30, 10, 0.33},
		{"rounds half up", 75, 20, 10, 0.38},
		{"jpy pip value", 75, 15, 1000.0 / 150, 0.75},
		{"zero stop", 75, 0, 10, 0},
		{"zero pip value", 75, 15, 0, 0},
		{"no risk", 0, 15, 10, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, PositionSize(tt.risk, tt.stop, tt.pipValue), 1e-12)
		})
	}
}
