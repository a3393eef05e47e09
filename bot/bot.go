// Package bot routes chat commands to the signal generator and the risk
// session, and turns the outcomes into replies.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rustyeddy/fxsignal/journal"
	"github.com/rustyeddy/fxsignal/metrics"
	"github.com/rustyeddy/fxsignal/pkg/id"
	"github.com/rustyeddy/fxsignal/risk"
	"github.com/rustyeddy/fxsignal/signal"
	"github.com/rustyeddy/fxsignal/telegram"
)

const (
	execPrefix     = "exec:"
	pollErrorPause = 3 * time.Second
)

// Transport is the subset of the Telegram client the bot uses.
type Transport interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Generator produces signals; *signal.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, sess *risk.Session, symbol string) (signal.Result, error)
}

type Config struct {
	Limits        risk.Limits
	DefaultSymbol string
	Granularity   string
	PollTimeout   time.Duration

	// PendingTTL bounds how long an "Executed" button stays valid. Zero
	// keeps buttons valid for the life of the process.
	PendingTTL time.Duration
}

type Bot struct {
	cfg     Config
	api     Transport
	gen     Generator
	sess    *risk.Session
	journal journal.Journal
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]signal.Result
	offset  int
}

type Option func(*Bot)

func WithJournal(j journal.Journal) Option {
	return func(b *Bot) { b.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

func New(cfg Config, api Transport, gen Generator, sess *risk.Session, log *zap.Logger, opts ...Option) *Bot {
	if cfg.DefaultSymbol == "" {
		cfg.DefaultSymbol = "EURUSD"
	}
	if cfg.Granularity == "" {
		cfg.Granularity = "H1"
	}
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bot{
		cfg:     cfg,
		api:     api,
		gen:     gen,
		sess:    sess,
		journal: journal.Nop{},
		log:     log,
		now:     time.Now,
		pending: make(map[string]signal.Result),
	}
	for _, o := range opts {
		o(b)
	}
	if b.metrics != nil {
		b.metrics.Balance.Set(sess.Snapshot().Account.Balance)
	}
	return b
}

// Run long-polls for updates and handles them one at a time until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("bot started", zap.Duration("poll_timeout", b.cfg.PollTimeout))
	for {
		if err := ctx.Err(); err != nil {
			b.log.Info("bot stopped")
			return nil
		}

		updates, err := b.api.GetUpdates(ctx, b.offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.log.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(pollErrorPause):
			}
			continue
		}

		for _, u := range updates {
			b.Handle(ctx, u)
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
		}
	}
}

var tracer = otel.Tracer("github.com/rustyeddy/fxsignal/bot")

// Handle processes a single update.
func (b *Bot) Handle(ctx context.Context, u telegram.Update) {
	ctx, span := tracer.Start(ctx, "bot.Handle",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.Int("update_id", u.UpdateID)))
	defer span.End()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.Text != "":
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	cmd, args := parseCommand(msg.Text)
	chatID := msg.Chat.ID
	b.log.Debug("command", zap.Int64("chat", chatID), zap.String("cmd", cmd), zap.Strings("args", args))

	switch cmd {
	case "/signal":
		symbol := b.cfg.DefaultSymbol
		if len(args) > 0 {
			symbol = args[0]
		}
		b.cmdSignal(ctx, chatID, symbol)
	case "/dashboard", "/start", "/status":
		b.reply(ctx, chatID, FormatDashboard(b.sess.Snapshot(), b.cfg.Limits), nil)
	case "/result":
		b.cmdResult(ctx, chatID, args)
	case "/help":
		b.reply(ctx, chatID, helpText, nil)
	default:
		if strings.HasPrefix(cmd, "/") {
			b.reply(ctx, chatID, "Unknown command.\n\n"+helpText, nil)
		}
	}
}

func (b *Bot) cmdSignal(ctx context.Context, chatID int64, symbol string) {
	res, err := b.gen.Generate(ctx, b.sess, symbol)
	if err != nil {
		switch signal.ErrorKind(err) {
		case signal.KindUnknownInstrument:
			b.reply(ctx, chatID, formatUnknownSymbol(symbol), nil)
		case signal.KindDataUnavailable, signal.KindInsufficientData, signal.KindInvalidData:
			b.reply(ctx, chatID, formatTryLater(res.Symbol), nil)
		case signal.KindSinkWrite:
			b.log.Error("signal not delivered to EA", zap.String("symbol", res.Symbol), zap.Error(err))
			b.reply(ctx, chatID, FormatSignal(res, b.cfg.Granularity)+"\n\n"+formatSinkFailure(res, err), nil)
		default:
			b.log.Error("signal failed", zap.String("symbol", symbol), zap.Error(err))
			b.reply(ctx, chatID, formatInternalError(err), nil)
		}
		return
	}

	if res.Status == signal.Blocked {
		b.reply(ctx, chatID, FormatBlocked(res), nil)
		return
	}

	var kb *telegram.InlineKeyboardMarkup
	if res.Direction.Actionable() {
		b.addPending(res)
		kb = &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "✅ Executed", CallbackData: execPrefix + res.ID},
		}}}
	}
	b.reply(ctx, chatID, FormatSignal(res, b.cfg.Granularity), kb)
}

func (b *Bot) cmdResult(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(ctx, chatID, "Usage: /result PNL, e.g. /result -75 or /result 150", nil)
		return
	}
	pnl, err := strconv.ParseFloat(strings.TrimPrefix(args[0], "$"), 64)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /result PNL, e.g. /result -75 or /result 150", nil)
		return
	}

	acct, err := b.sess.ApplyResult(pnl)
	if err != nil {
		b.reply(ctx, chatID, "⚠️ "+esc(err.Error()), nil)
		return
	}
	b.log.Info("trade result booked", zap.Float64("pnl", pnl), zap.Float64("balance", acct.Balance))
	if b.metrics != nil {
		b.metrics.Balance.Set(acct.Balance)
	}
	if err := b.journal.RecordEquity(journal.EquitySnapshot{
		Time:       b.now(),
		PnL:        pnl,
		Balance:    acct.Balance,
		DailyPnL:   acct.DailyPnL(),
		OverallPnL: acct.OverallPnL(),
	}); err != nil {
		b.log.Error("journal equity", zap.Error(err))
	}
	b.reply(ctx, chatID, FormatResult(pnl, acct), nil)
}

func (b *Bot) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	signalID, ok := strings.CutPrefix(cq.Data, execPrefix)
	if !ok {
		b.answer(ctx, cq.ID, "")
		return
	}

	res, ok := b.takePending(signalID)
	if !ok {
		b.answer(ctx, cq.ID, "Signal expired or already recorded")
		return
	}

	// The cap may have been reached since the signal was issued.
	d, taken := b.sess.RecordTradeIf(b.cfg.Limits, res.Symbol)
	if !d.Allowed {
		b.answer(ctx, cq.ID, d.Reason())
		return
	}

	log := b.log.With(zap.String("symbol", res.Symbol), zap.String("signal_id", res.ID))
	log.Info("trade recorded", zap.Int("taken", taken))
	if b.metrics != nil {
		b.metrics.TradesRecorded.WithLabelValues(res.Symbol).Inc()
	}
	if err := b.journal.RecordTrade(journal.TradeRecord{
		TradeID:   id.New(),
		SignalID:  res.ID,
		Symbol:    res.Symbol,
		Direction: string(res.Direction),
		Lots:      res.PositionSize,
		RSI:       res.RSI,
		Time:      b.now(),
	}); err != nil {
		log.Error("journal trade", zap.Error(err))
	}

	b.answer(ctx, cq.ID, "Recorded")
	if cq.Message != nil {
		b.reply(ctx, cq.Message.Chat.ID, FormatRecorded(res, taken, b.cfg.Limits.MaxTradesPerPair), nil)
	}
}

func (b *Bot) addPending(res signal.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[res.ID] = res
}

// takePending removes and returns the pending signal. Expired entries are
// dropped.
func (b *Bot) takePending(signalID string) (signal.Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune()
	res, ok := b.pending[signalID]
	if ok {
		delete(b.pending, signalID)
	}
	return res, ok
}

func (b *Bot) prune() {
	if b.cfg.PendingTTL <= 0 {
		return
	}
	cutoff := b.now().Add(-b.cfg.PendingTTL)
	for k := range b.pending {
		issued, err := id.Time(k)
		if err != nil || issued.Before(cutoff) {
			delete(b.pending, k)
		}
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) {
	_, err := b.api.SendMessage(ctx, chatID, text, telegram.SendOptions{ParseMode: parseMode, Keyboard: kb})
	if err != nil && !errors.Is(err, context.Canceled) {
		b.log.Warn("sendMessage failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.api.AnswerCallback(ctx, callbackID, text); err != nil {
		b.log.Warn("answerCallbackQuery failed", zap.Error(err))
	}
}

// parseCommand splits "/signal@MyBot gbpusd" into ("/signal", ["gbpusd"]).
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}
