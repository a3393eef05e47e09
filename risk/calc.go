package risk

import "math"

// PositionSize returns lots for a fixed dollar risk over stopPips, where
// pipValue is the value of one pip on one lot. Rounded to 2 decimals.
func PositionSize(riskAmount, stopPips, pipValue float64) float64 {
	denom := stopPips * pipValue
	if denom <= 0 || riskAmount <= 0 {
		return 0
	}
	return round2(riskAmount / denom)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
