// Package indicators provides technical analysis indicators computed over
// closing-price series (oldest first).
package indicators

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData is returned when a series is too short for the
// requested period.
var ErrInsufficientData = errors.New("insufficient data")

// ErrNonFinite is returned when the window holds a NaN or infinite close.
var ErrNonFinite = errors.New("non-finite close")

func checkSeries(closes []float64, period, need int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if len(closes) < need {
		return fmt.Errorf("%w: need %d closes, got %d", ErrInsufficientData, need, len(closes))
	}
	for i := len(closes) - need; i < len(closes); i++ {
		if math.IsNaN(closes[i]) || math.IsInf(closes[i], 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}
