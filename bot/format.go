package bot

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/risk"
	"github.com/rustyeddy/fxsignal/signal"
)

// Replies are sent with the HTML parse mode; every dynamic value passes
// through html.EscapeString.
const parseMode = "HTML"

var directionIcon = map[signal.Direction]string{
	signal.Buy:  "🟢",
	signal.Sell: "🔴",
	signal.Hold: "⚪",
}

// FormatSignal renders an evaluated result.
func FormatSignal(r signal.Result, granularity string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 <b>SIGNAL %s</b>\n\n", esc(r.Symbol))
	fmt.Fprintf(&b, "%s <b>%s</b> %s\n", directionIcon[r.Direction], r.Direction, esc(r.Symbol))
	fmt.Fprintf(&b, "📊 RSI: %.1f | %s\n", r.RSI, esc(r.RiskStatus))
	if r.Filtered {
		b.WriteString("〰️ momentum filter: HOLD\n")
	}
	fmt.Fprintf(&b, "\n💱 %s %s @ %s\n", esc(r.Symbol), esc(granularity), strconv.FormatFloat(r.LastClose, 'f', -1, 64))
	fmt.Fprintf(&b, "📦 %.2f lots | 🛑 %gpips | 🎯 %gpips\n", r.PositionSize, r.StopLossPips, r.TakeProfitPips)
	fmt.Fprintf(&b, "💰 Risk: %s\n", money(r.RiskAmount))
	if r.Direction.Actionable() {
		b.WriteString("\n✅ <b>EA AUTO-TRADING</b>")
	} else {
		b.WriteString("\n⏸ <b>NO TRADE</b>")
	}
	return b.String()
}

// FormatBlocked renders a risk guard rejection.
func FormatBlocked(r signal.Result) string {
	return fmt.Sprintf("❌ <b>BLOCKED</b> %s\n%s", esc(r.Symbol), esc(r.Reason))
}

// FormatDashboard summarises the session.
func FormatDashboard(snap risk.Snapshot, l risk.Limits) string {
	acct := snap.Account
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s STATUS</b>\n\n", money(acct.Initial))
	fmt.Fprintf(&b, "💼 Balance: %s\n", money(acct.Balance))
	fmt.Fprintf(&b, "📉 Daily DD: %s/%s\n", money(math.Max(-acct.DailyPnL(), 0)), money(l.DailyDrawdown))
	fmt.Fprintf(&b, "📉 Overall DD: %s/%s\n", money(math.Max(-acct.OverallPnL(), 0)), money(l.OverallDrawdown))
	fmt.Fprintf(&b, "🔢 Pairs: %d\n", len(snap.Trades))

	syms := make([]string, 0, len(snap.Trades))
	for s := range snap.Trades {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	for _, s := range syms {
		fmt.Fprintf(&b, "   • %s %d/%d\n", esc(s), snap.Trades[s], l.MaxTradesPerPair)
	}

	if d := risk.Check(l, snap, ""); d.Allowed {
		b.WriteString("\n🟢 <b>LIVE</b>")
	} else {
		fmt.Fprintf(&b, "\n🛑 <b>HALTED</b> %s", esc(d.Reason()))
	}
	return b.String()
}

// FormatResult confirms a booked trade result.
func FormatResult(pnl float64, acct risk.Account) string {
	icon := "📈"
	if pnl < 0 {
		icon = "📉"
	}
	return fmt.Sprintf("%s Result %s booked\n💼 Balance: %s\n📅 Today: %s",
		icon, signedMoney(pnl), money(acct.Balance), signedMoney(acct.DailyPnL()))
}

// FormatRecorded confirms an execution.
func FormatRecorded(r signal.Result, taken, limit int) string {
	return fmt.Sprintf("✅ Recorded %s %s %.2f lots | %d/%d trades",
		r.Direction, esc(r.Symbol), r.PositionSize, taken, limit)
}

func formatUnknownSymbol(symbol string) string {
	return fmt.Sprintf("❓ Unknown symbol %s\nTry: %s", esc(symbol), esc(strings.Join(market.Symbols(), ", ")))
}

func formatTryLater(symbol string) string {
	return fmt.Sprintf("⚠️ Market data for %s is unavailable right now, try again later.", esc(symbol))
}

func formatSinkFailure(r signal.Result, err error) string {
	return fmt.Sprintf("🚨 <b>SIGNAL FILE NOT UPDATED</b>\nThe EA will not see %s %s.\n%s",
		r.Direction, esc(r.Symbol), esc(err.Error()))
}

func formatInternalError(err error) string {
	return fmt.Sprintf("⚠️ Signal failed: %s", esc(err.Error()))
}

const helpText = `<b>Commands</b>
/signal [SYMBOL] - RSI signal, default EURUSD
/dashboard - account status
/result PNL - book a closed trade, e.g. /result -75
/help - this message`

func esc(s string) string {
	return html.EscapeString(s)
}

// money renders v as $15,000 (whole dollars).
func money(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-$" + s
	}
	return "$" + s
}

func signedMoney(v float64) string {
	if v >= 0 {
		return "+" + money(v)
	}
	return money(v)
}
