package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/fxsignal/feed"
	"github.com/rustyeddy/fxsignal/indicators"
	"github.com/rustyeddy/fxsignal/journal"
	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/metrics"
	"github.com/rustyeddy/fxsignal/pkg/id"
	"github.com/rustyeddy/fxsignal/risk"
	"github.com/rustyeddy/fxsignal/signal"
	"github.com/rustyeddy/fxsignal/sink"
	"github.com/rustyeddy/fxsignal/telegram"
)

var testLimits = risk.Limits{DailyDrawdown: 750, OverallDrawdown: 1500, MaxTradesPerPair: 5}

type sent struct {
	chatID int64
	text   string
	kb     *telegram.InlineKeyboardMarkup
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []sent
	answers []string
	batches [][]telegram.Update
	offsets []int
	cancel  context.CancelFunc
}

func (f *fakeTransport) GetUpdates(ctx context.Context, offset int, _ time.Duration) ([]telegram.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if len(f.batches) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID: chatID, text: text, kb: opts.Keyboard})
	return &telegram.Message{Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeTransport) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeGenerator struct {
	res     signal.Result
	err     error
	symbols []string
}

func (g *fakeGenerator) Generate(_ context.Context, _ *risk.Session, symbol string) (signal.Result, error) {
	g.symbols = append(g.symbols, symbol)
	return g.res, g.err
}

type memJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (j *memJournal) RecordTrade(t journal.TradeRecord) error {
	j.trades = append(j.trades, t)
	return nil
}

func (j *memJournal) RecordEquity(e journal.EquitySnapshot) error {
	j.equity = append(j.equity, e)
	return nil
}

func (j *memJournal) Close() error { return nil }

func buyResult(now time.Time) signal.Result {
	return signal.Result{
		Status:         signal.Evaluated,
		Symbol:         "EURUSD",
		Time:           now,
		ID:             id.NewAt(now),
		Direction:      signal.Buy,
		RSI:            21.4,
		LastClose:      1.0842,
		PositionSize:   0.5,
		RiskAmount:     75,
		StopLossPips:   15,
		TakeProfitPips: 30,
		TradesLeft:     5,
		RiskStatus:     "SAFE | 0/5 trades, 5 left",
	}
}

func msg(text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{Chat: telegram.Chat{ID: 7}, Text: text}}
}

func press(data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &telegram.Message{Chat: telegram.Chat{ID: 7}},
	}}
}

func newTestBot(gen Generator, opts ...Option) (*Bot, *fakeTransport, *risk.Session) {
	tr := &fakeTransport{}
	sess := risk.NewSession(15000)
	b := New(Config{Limits: testLimits}, tr, gen, sess, zap.NewNop(), opts...)
	return b, tr, sess
}

func TestSignalDefaultsToEURUSD(t *testing.T) {
	gen := &fakeGenerator{res: buyResult(time.Now())}
	b, tr, _ := newTestBot(gen)

	b.Handle(context.Background(), msg("/signal"))
	b.Handle(context.Background(), msg("/signal@FxBot gbpusd"))

	assert.Equal(t, []string{"EURUSD", "gbpusd"}, gen.symbols)
	out := tr.last(t)
	assert.Equal(t, int64(7), out.chatID)
	assert.Contains(t, out.text, "BUY")
	assert.Contains(t, out.text, "0.50 lots")
	assert.Contains(t, out.text, "RSI: 21.4")
	require.NotNil(t, out.kb)
	assert.Equal(t, execPrefix+gen.res.ID, out.kb.InlineKeyboard[0][0].CallbackData)
}

func TestHoldHasNoButton(t *testing.T) {
	res := buyResult(time.Now())
	res.Direction = signal.Hold
	b, tr, _ := newTestBot(&fakeGenerator{res: res})

	b.Handle(context.Background(), msg("/signal"))

	out := tr.last(t)
	assert.Contains(t, out.text, "HOLD")
	assert.Contains(t, out.text, "NO TRADE")
	assert.Nil(t, out.kb)
}

func TestBlockedReply(t *testing.T) {
	gen := &fakeGenerator{res: signal.Result{
		Status: signal.Blocked,
		Symbol: "EURUSD",
		Code:   risk.CodeMaxTrades,
		Reason: "MAX 5 TRADES - EURUSD: 5/5",
	}}
	b, tr, _ := newTestBot(gen)

	b.Handle(context.Background(), msg("/signal EURUSD"))

	out := tr.last(t)
	assert.Contains(t, out.text, "BLOCKED")
	assert.Contains(t, out.text, "5/5")
	assert.Nil(t, out.kb)
}

func TestSignalErrors(t *testing.T) {
	tests := []struct {
		name string
		res  signal.Result
		err  error
		want string
	}{
		{"unknown symbol", signal.Result{}, fmt.Errorf("%w: FOO", market.ErrUnknownInstrument), "Unknown symbol"},
		{"feed down", signal.Result{Symbol: "EURUSD"}, fmt.Errorf("%w: timeout", feed.ErrDataUnavailable), "try again later"},
		{"short series", signal.Result{Symbol: "EURUSD"}, indicators.ErrInsufficientData, "try again later"},
		{"bad close", signal.Result{Symbol: "EURUSD"}, indicators.ErrNonFinite, "try again later"},
		{"sink", buyResult(time.Now()), fmt.Errorf("%w: disk full", sink.ErrWrite), "SIGNAL FILE NOT UPDATED"},
		{"other", signal.Result{}, errors.New("boom"), "Signal failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, tr, sess := newTestBot(&fakeGenerator{res: tt.res, err: tt.err})
			before := sess.Snapshot()

			b.Handle(context.Background(), msg("/signal FOO"))

			out := tr.last(t)
			assert.Contains(t, out.text, tt.want)
			assert.Nil(t, out.kb)
			assert.Equal(t, before, sess.Snapshot())
		})
	}
}

func TestExecutedButtonRecordsOnce(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{res: buyResult(now)}
	j := &memJournal{}
	m := metrics.New()
	b, tr, sess := newTestBot(gen, WithJournal(j), WithMetrics(m), WithClock(func() time.Time { return now }))

	b.Handle(context.Background(), msg("/signal"))
	data := tr.last(t).kb.InlineKeyboard[0][0].CallbackData

	b.Handle(context.Background(), press(data))
	b.Handle(context.Background(), press(data))

	assert.Equal(t, 1, sess.Snapshot().TradesFor("EURUSD"))
	assert.Equal(t, []string{"Recorded", "Signal expired or already recorded"}, tr.answers)
	assert.Contains(t, tr.last(t).text, "1/5 trades")

	require.Len(t, j.trades, 1)
	assert.Equal(t, gen.res.ID, j.trades[0].SignalID)
	assert.Equal(t, "BUY", j.trades[0].Direction)
	assert.Equal(t, 0.5, j.trades[0].Lots)
	assert.NotEmpty(t, j.trades[0].TradeID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesRecorded.WithLabelValues("EURUSD")))
}

func TestExecutedButtonRespectsCap(t *testing.T) {
	gen := &fakeGenerator{res: buyResult(time.Now())}
	b, tr, sess := newTestBot(gen)

	b.Handle(context.Background(), msg("/signal"))
	data := tr.last(t).kb.InlineKeyboard[0][0].CallbackData
	for i := 0; i < 5; i++ {
		sess.RecordTrade("EURUSD")
	}

	b.Handle(context.Background(), press(data))

	assert.Equal(t, 5, sess.Snapshot().TradesFor("EURUSD"))
	require.Len(t, tr.answers, 1)
	assert.Contains(t, tr.answers[0], "5/5")
}

func TestConcurrentExecutedPressesRespectCap(t *testing.T) {
	now := time.Now()
	tr := &fakeTransport{}
	sess := risk.NewSession(15000)
	for i := 0; i < 4; i++ {
		sess.RecordTrade("EURUSD")
	}
	gen := &fakeGenerator{}
	b := New(Config{Limits: testLimits}, tr, gen, sess, zap.NewNop())

	// Two signals issued while one trade was left.
	var presses []telegram.Update
	for i := 0; i < 2; i++ {
		gen.res = buyResult(now)
		b.Handle(context.Background(), msg("/signal"))
		presses = append(presses, press(tr.last(t).kb.InlineKeyboard[0][0].CallbackData))
	}

	var wg sync.WaitGroup
	for _, u := range presses {
		wg.Add(1)
		go func(u telegram.Update) {
			defer wg.Done()
			b.Handle(context.Background(), u)
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 5, sess.Snapshot().TradesFor("EURUSD"))
	assert.ElementsMatch(t, []string{"Recorded", "MAX 5 TRADES - EURUSD: 5/5"}, tr.answers)
}

func TestExecutedButtonExpires(t *testing.T) {
	issued := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	clock := issued
	gen := &fakeGenerator{res: buyResult(issued)}
	tr := &fakeTransport{}
	sess := risk.NewSession(15000)
	b := New(Config{Limits: testLimits, PendingTTL: time.Hour}, tr, gen, sess, nil,
		WithClock(func() time.Time { return clock }))

	b.Handle(context.Background(), msg("/signal"))
	data := tr.last(t).kb.InlineKeyboard[0][0].CallbackData

	clock = issued.Add(2 * time.Hour)
	b.Handle(context.Background(), press(data))

	assert.Equal(t, 0, sess.Snapshot().TradesFor("EURUSD"))
	assert.Equal(t, []string{"Signal expired or already recorded"}, tr.answers)
}

func TestForeignCallbackIsAcknowledged(t *testing.T) {
	b, tr, sess := newTestBot(&fakeGenerator{})

	b.Handle(context.Background(), press("something-else"))

	assert.Equal(t, []string{""}, tr.answers)
	assert.Empty(t, sess.Snapshot().Trades)
}

func TestResultCommand(t *testing.T) {
	j := &memJournal{}
	m := metrics.New()
	b, tr, sess := newTestBot(&fakeGenerator{}, WithJournal(j), WithMetrics(m))
	assert.Equal(t, 15000.0, testutil.ToFloat64(m.Balance))

	b.Handle(context.Background(), msg("/result -750"))

	acct := sess.Snapshot().Account
	assert.Equal(t, 14250.0, acct.Balance)
	assert.Equal(t, 15000.0, acct.SessionStart)
	assert.Contains(t, tr.last(t).text, "$14,250")
	assert.Equal(t, 14250.0, testutil.ToFloat64(m.Balance))
	require.Len(t, j.equity, 1)
	assert.Equal(t, -750.0, j.equity[0].DailyPnL)

	// The daily drawdown now halts the dashboard.
	b.Handle(context.Background(), msg("/dashboard"))
	assert.Contains(t, tr.last(t).text, "HALTED")
	assert.Contains(t, tr.last(t).text, "DAILY DD")
}

func TestResultCommandRejectsBadInput(t *testing.T) {
	for _, text := range []string{"/result", "/result abc", "/result 1 2", "/result -20000"} {
		t.Run(text, func(t *testing.T) {
			j := &memJournal{}
			b, tr, sess := newTestBot(&fakeGenerator{}, WithJournal(j))

			b.Handle(context.Background(), msg(text))

			assert.Equal(t, 15000.0, sess.Snapshot().Account.Balance)
			assert.Empty(t, j.equity)
			assert.NotEmpty(t, tr.last(t).text)
		})
	}
}

func TestDashboardAndHelp(t *testing.T) {
	b, tr, sess := newTestBot(&fakeGenerator{})
	sess.RecordTrade("GBPUSD")
	sess.RecordTrade("EURUSD")
	sess.RecordTrade("EURUSD")

	b.Handle(context.Background(), msg("/start"))
	out := tr.last(t).text
	assert.Contains(t, out, "$15,000 STATUS")
	assert.Contains(t, out, "Pairs: 2")
	assert.Contains(t, out, "EURUSD 2/5")
	assert.Contains(t, out, "GBPUSD 1/5")
	assert.Contains(t, out, "LIVE")

	b.Handle(context.Background(), msg("/help"))
	assert.Contains(t, tr.last(t).text, "/signal")

	b.Handle(context.Background(), msg("/nope"))
	assert.Contains(t, tr.last(t).text, "Unknown command")

	n := len(tr.sent)
	b.Handle(context.Background(), msg("just chatting"))
	assert.Len(t, tr.sent, n)
}

func TestRunAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTransport{cancel: cancel, batches: [][]telegram.Update{
		{withID(msg("/help"), 10), withID(msg("/help"), 11)},
		{withID(msg("/dashboard"), 12)},
	}}
	b := New(Config{Limits: testLimits}, tr, &fakeGenerator{}, risk.NewSession(15000), zap.NewNop())

	require.NoError(t, b.Run(ctx))
	assert.Equal(t, []int{0, 12, 13}, tr.offsets)
	assert.Len(t, tr.sent, 3)
}

func TestEndToEndWithGenerator(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 1.2 - float64(i)*0.001
	}
	out := sink.New(filepath.Join(t.TempDir(), "signals.txt"))
	gen := signal.NewGenerator(signal.Config{
		Limits:         testLimits,
		RiskPerTrade:   75,
		StopLossPips:   15,
		TakeProfitPips: 30,
		PipValue:       10,
		Oversold:       28,
		Overbought:     72,
		Lookback:       20 * 24 * time.Hour,
	}, staticFeed(closes), out, zap.NewNop())
	b, tr, sess := newTestBot(gen)

	b.Handle(context.Background(), msg("/signal eur_usd"))

	token, err := out.Read()
	require.NoError(t, err)
	assert.Equal(t, "BUY", token)
	reply := tr.last(t)
	assert.Contains(t, reply.text, "RSI: 0.0")
	require.NotNil(t, reply.kb)

	b.Handle(context.Background(), press(reply.kb.InlineKeyboard[0][0].CallbackData))
	assert.Equal(t, 1, sess.Snapshot().TradesFor("EURUSD"))
}

type staticFeed []float64

func (s staticFeed) Closes(context.Context, feed.Request) ([]float64, error) {
	return s, nil
}

func withID(u telegram.Update, n int) telegram.Update {
	u.UpdateID = n
	return u
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$15,000", money(15000))
	assert.Equal(t, "$750", money(750))
	assert.Equal(t, "-$1,500", money(-1500))
	assert.Equal(t, "$1,234,568", money(1234567.6))
	assert.Equal(t, "$0", money(-0.2))
	assert.Equal(t, "+$150", signedMoney(150))
	assert.Equal(t, "-$75", signedMoney(-75))
}
