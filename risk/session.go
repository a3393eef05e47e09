package risk

import (
	"fmt"
	"sync"
)

// Session owns the account state and the per-instrument trade counters for
// the life of the process. All methods are safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	account Account
	trades  map[string]int
}

// NewSession starts a session with every balance set to initial.
func NewSession(initial float64) *Session {
	return &Session{
		account: Account{
			Balance:      initial,
			SessionStart: initial,
			Initial:      initial,
		},
		trades: make(map[string]int),
	}
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	trades := make(map[string]int, len(s.trades))
	for k, v := range s.trades {
		trades[k] = v
	}
	return Snapshot{Account: s.account, Trades: trades}
}

// RecordTrade counts one executed trade on symbol and returns the new count.
func (s *Session) RecordTrade(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[symbol]++
	return s.trades[symbol]
}

// RecordTradeIf runs Check and, when allowed, counts one trade on symbol,
// both under the session lock. The returned decision reflects the state
// before the trade; taken is the count afterwards.
func (s *Session) RecordTradeIf(l Limits, symbol string) (d Decision, taken int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d = Check(l, s.snapshotLocked(), symbol)
	if !d.Allowed {
		return d, s.trades[symbol]
	}
	s.trades[symbol]++
	return d, s.trades[symbol]
}

// ApplyResult books the profit or loss of a closed trade.
func (s *Session) ApplyResult(pnl float64) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.account.Balance + pnl
	if next < 0 {
		return s.account, fmt.Errorf("result %.2f would leave a negative balance", pnl)
	}
	s.account.Balance = next
	return s.account, nil
}
