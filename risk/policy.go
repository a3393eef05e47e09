package risk

// Limits are the fixed risk thresholds of the account.
type Limits struct {
	DailyDrawdown    float64 // 750
	OverallDrawdown  float64 // 1500
	MaxTradesPerPair int     // 5
}

// Safety margins keep the bot from trading right up to the hard limits.
const (
	DailyDrawdownBuffer   = 0.98
	OverallDrawdownBuffer = 0.95
)

// Account is the balance state of the funded account.
type Account struct {
	Balance      float64
	SessionStart float64
	Initial      float64
}

// DailyPnL is the change since the session started.
func (a Account) DailyPnL() float64 {
	return a.Balance - a.SessionStart
}

// OverallPnL is the change since the account opened.
func (a Account) OverallPnL() float64 {
	return a.Balance - a.Initial
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Account Account
	Trades  map[string]int
}

// TradesFor returns the trade count for symbol, 0 if none.
func (s Snapshot) TradesFor(symbol string) int {
	return s.Trades[symbol]
}
