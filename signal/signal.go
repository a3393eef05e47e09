// Package signal turns a price series into a sized BUY/SELL/HOLD
// recommendation behind the risk guard.
package signal

import (
	"time"
)

// Direction is the coarse recommendation, also the token written to the sink.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Actionable reports whether the direction opens a trade.
func (d Direction) Actionable() bool {
	return d == Buy || d == Sell
}

// Status tags a Result.
type Status int

const (
	Blocked Status = iota + 1
	Evaluated
)

func (s Status) String() string {
	switch s {
	case Blocked:
		return "BLOCKED"
	case Evaluated:
		return "EVALUATED"
	}
	return "UNKNOWN"
}

// Result is either Blocked (Code, Reason) or Evaluated (everything else).
type Result struct {
	Status Status
	Symbol string
	Time   time.Time

	// Blocked
	Code   string
	Reason string

	// Evaluated
	ID             string
	Direction      Direction
	RSI            float64
	Filtered       bool // momentum filter turned BUY/SELL into HOLD
	LastClose      float64
	PositionSize   float64
	RiskAmount     float64
	StopLossPips   float64
	TakeProfitPips float64
	TradesLeft     int
	RiskStatus     string
}

// Classify maps an RSI to a direction: below oversold buys, above
// overbought sells.
func Classify(rsi, oversold, overbought float64) Direction {
	switch {
	case rsi < oversold:
		return Buy
	case rsi > overbought:
		return Sell
	}
	return Hold
}

// ApplyMomentum demotes BUY unless the last close is above its SMA and SELL
// unless it is below.
func ApplyMomentum(d Direction, lastClose, sma float64) Direction {
	switch {
	case d == Buy && lastClose <= sma:
		return Hold
	case d == Sell && lastClose >= sma:
		return Hold
	}
	return d
}
