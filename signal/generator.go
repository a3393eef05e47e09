package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/rustyeddy/fxsignal/feed"
	"github.com/rustyeddy/fxsignal/indicators"
	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/metrics"
	"github.com/rustyeddy/fxsignal/oanda"
	"github.com/rustyeddy/fxsignal/pkg/id"
	"github.com/rustyeddy/fxsignal/risk"
)

// Config holds the static parameters of the generator.
type Config struct {
	Limits risk.Limits

	RiskPerTrade   float64
	StopLossPips   float64
	TakeProfitPips float64
	PipValue       float64 // fallback for crosses

	RSIPeriod  int
	Oversold   float64
	Overbought float64

	MomentumFilter bool
	MomentumPeriod int

	Lookback    time.Duration
	Granularity oanda.Granularity
	Timeout     time.Duration
}

// Sink receives the coarse direction of every evaluated signal.
type Sink interface {
	Write(token string) error
}

type Generator struct {
	cfg      Config
	provider feed.Provider
	sink     Sink
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Generator)

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(cfg Config, provider feed.Provider, sink Sink, log *zap.Logger, opts ...Option) *Generator {
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = indicators.DefaultRSIPeriod
	}
	if cfg.Granularity == "" {
		cfg.Granularity = oanda.H1
	}
	if log == nil {
		log = zap.NewNop()
	}
	g := &Generator{
		cfg:      cfg,
		provider: provider,
		sink:     sink,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

var tracer = otel.Tracer("github.com/rustyeddy/fxsignal/signal")

// Generate evaluates symbol against the session. A blocked session returns
// a Blocked result without touching the price feed or the sink. Errors wrap
// market.ErrUnknownInstrument, feed.ErrDataUnavailable,
// indicators.ErrInsufficientData or sink.ErrWrite.
func (g *Generator) Generate(ctx context.Context, sess *risk.Session, symbol string) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "signal.Generate")
	defer func() {
		span.SetAttributes(attribute.String("symbol", res.Symbol), attribute.String("status", res.Status.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	meta, err := market.Lookup(symbol)
	if err != nil {
		g.countError(err)
		return Result{Symbol: symbol}, err
	}
	sym := meta.Symbol()
	log := g.log.With(zap.String("symbol", sym))

	decision := risk.Check(g.cfg.Limits, sess.Snapshot(), sym)
	if !decision.Allowed {
		log.Warn("signal blocked",
			zap.String("code", decision.Violation.Code),
			zap.String("reason", decision.Reason()))
		if g.metrics != nil {
			g.metrics.BlockedTotal.WithLabelValues(decision.Violation.Code).Inc()
		}
		return Result{
			Status: Blocked,
			Symbol: sym,
			Time:   g.now(),
			Code:   decision.Violation.Code,
			Reason: decision.Reason(),
		}, nil
	}

	closes, err := g.fetch(ctx, meta)
	if err != nil {
		log.Warn("price fetch failed", zap.Error(err))
		g.countError(err)
		return Result{Symbol: sym}, err
	}

	rsi, err := indicators.RSI(closes, g.cfg.RSIPeriod)
	if err != nil {
		log.Warn("rsi unavailable", zap.Int("closes", len(closes)), zap.Error(err))
		g.countError(err)
		return Result{Symbol: sym}, fmt.Errorf("%s: %w", sym, err)
	}

	last := closes[len(closes)-1]
	dir := Classify(rsi, g.cfg.Oversold, g.cfg.Overbought)
	filtered := false
	if g.cfg.MomentumFilter && dir.Actionable() {
		sma, err := indicators.SMA(closes, g.cfg.MomentumPeriod)
		if err != nil {
			g.countError(err)
			return Result{Symbol: sym}, fmt.Errorf("%s: momentum: %w", sym, err)
		}
		if next := ApplyMomentum(dir, last, sma); next != dir {
			log.Debug("momentum filter", zap.String("raw", string(dir)), zap.Float64("close", last), zap.Float64("sma", sma))
			dir, filtered = next, true
		}
	}

	pipValue := meta.PipValue(last, g.cfg.PipValue)
	now := g.now()
	res = Result{
		Status:         Evaluated,
		Symbol:         sym,
		Time:           now,
		ID:             id.NewAt(now),
		Direction:      dir,
		RSI:            rsi,
		Filtered:       filtered,
		LastClose:      last,
		PositionSize:   risk.PositionSize(g.cfg.RiskPerTrade, g.cfg.StopLossPips, pipValue),
		RiskAmount:     g.cfg.RiskPerTrade,
		StopLossPips:   g.cfg.StopLossPips,
		TakeProfitPips: g.cfg.TakeProfitPips,
		TradesLeft:     decision.Left,
		RiskStatus:     decision.Status,
	}

	if err := g.sink.Write(string(dir)); err != nil {
		log.Error("signal sink write failed", zap.String("direction", string(dir)), zap.Error(err))
		g.countError(err)
		return res, err
	}

	log.Info("signal",
		zap.String("id", res.ID),
		zap.String("direction", string(dir)),
		zap.Float64("rsi", rsi),
		zap.Float64("lots", res.PositionSize),
		zap.Int("trades_left", res.TradesLeft))
	if g.metrics != nil {
		g.metrics.SignalsTotal.WithLabelValues(string(dir)).Inc()
		g.metrics.LastRSI.WithLabelValues(sym).Set(rsi)
	}
	return res, nil
}

func (g *Generator) fetch(ctx context.Context, meta market.InstrumentMeta) ([]float64, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	closes, err := g.provider.Closes(ctx, feed.Request{
		Instrument:  meta,
		Lookback:    g.cfg.Lookback,
		Granularity: g.cfg.Granularity,
	})
	if g.metrics != nil {
		g.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil && !errors.Is(err, feed.ErrDataUnavailable) {
		err = fmt.Errorf("%w: %v", feed.ErrDataUnavailable, err)
	}
	return closes, err
}

func (g *Generator) countError(err error) {
	if g.metrics == nil {
		return
	}
	g.metrics.ErrorsTotal.WithLabelValues(ErrorKind(err)).Inc()
}
