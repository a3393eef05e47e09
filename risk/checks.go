package risk

import "fmt"

// Violation codes.
const (
	CodeDailyDrawdown   = "DAILY_DRAWDOWN"
	CodeOverallDrawdown = "OVERALL_DRAWDOWN"
	CodeMaxTrades       = "MAX_TRADES"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed   bool
	Violation Violation
	Status    string

	Taken int
	Left  int
}

// Reason returns the violation message of a blocked decision.
func (d Decision) Reason() string {
	return d.Violation.Msg
}

// Check runs the checks in order and stops at the first failure: daily
// drawdown, overall drawdown, then trades per instrument. It never mutates
// state.
func Check(l Limits, snap Snapshot, symbol string) Decision {
	acct := snap.Account
	taken := snap.TradesFor(symbol)
	d := Decision{Taken: taken, Left: max(l.MaxTradesPerPair-taken, 0)}

	if loss := -acct.DailyPnL(); loss >= l.DailyDrawdown*DailyDrawdownBuffer {
		return d.block(CodeDailyDrawdown,
			fmt.Sprintf("DAILY DD: $%.0f/$%.0f", loss, l.DailyDrawdown))
	}
	if pnl := acct.OverallPnL(); pnl <= -l.OverallDrawdown*OverallDrawdownBuffer {
		return d.block(CodeOverallDrawdown,
			fmt.Sprintf("OVERALL DD: $%.0f/$%.0f", -pnl, l.OverallDrawdown))
	}
	if taken >= l.MaxTradesPerPair {
		return d.block(CodeMaxTrades,
			fmt.Sprintf("MAX %d TRADES - %s: %d/%d", l.MaxTradesPerPair, symbol, taken, l.MaxTradesPerPair))
	}

	d.Allowed = true
	d.Status = fmt.Sprintf("SAFE | %d/%d trades, %d left", taken, l.MaxTradesPerPair, d.Left)
	return d
}

func (d Decision) block(code, msg string) Decision {
	d.Allowed = false
	d.Violation = Violation{Code: code, Msg: msg}
	return d
}
