// journal/journal.go
package journal

import "time"

// TradeRecord is an execution confirmed from the chat.
type TradeRecord struct {
	TradeID   string
	SignalID  string
	Symbol    string
	Direction string
	Lots      float64
	RSI       float64
	Time      time.Time
}

// EquitySnapshot is written whenever a closed trade result is booked.
type EquitySnapshot struct {
	Time       time.Time
	PnL        float64
	Balance    float64
	DailyPnL   float64
	OverallPnL float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
