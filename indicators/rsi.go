package indicators

// DefaultRSIPeriod is the classic 14 bar lookback.
const DefaultRSIPeriod = 14

// RSI calculates the Relative Strength Index over the trailing period.
//
// Gains and losses are averaged with a plain mean over the last period
// differences (no Wilder smoothing). A window without gains is 0, including a
// flat window; a window with gains but no losses is 100.
func RSI(closes []float64, period int) (float64, error) {
	if err := checkSeries(closes, period, period+1); err != nil {
		return 0, err
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	switch {
	case avgGain == 0:
		return 0, nil
	case avgLoss == 0:
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
