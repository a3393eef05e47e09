package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/fxsignal/internal/logger"
	"github.com/rustyeddy/fxsignal/market"
	"github.com/rustyeddy/fxsignal/oanda"
	"github.com/rustyeddy/fxsignal/risk"
	"github.com/rustyeddy/fxsignal/signal"
)

// Config represents the complete bot configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Signal   SignalConfig   `json:"signal" yaml:"signal"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Sink     SinkConfig     `json:"sink" yaml:"sink"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Log      logger.Config  `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Trace    TraceConfig    `json:"trace" yaml:"trace"`
}

// AccountConfig holds the funded account rules.
type AccountConfig struct {
	Size             float64 `json:"size" yaml:"size"`
	DailyDrawdown    float64 `json:"daily_drawdown" yaml:"daily_drawdown"`
	OverallDrawdown  float64 `json:"overall_drawdown" yaml:"overall_drawdown"`
	RiskPerTrade     float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxTradesPerPair int     `json:"max_trades_per_pair" yaml:"max_trades_per_pair"`
	MinStopPips      float64 `json:"min_stop_pips" yaml:"min_stop_pips"`
	TakeProfitPips   float64 `json:"take_profit_pips" yaml:"take_profit_pips"`
	MaxSpread        float64 `json:"max_spread" yaml:"max_spread"` // pips, informational
	PipValue         float64 `json:"pip_value" yaml:"pip_value"`   // USD per pip per lot for crosses
}

// SignalConfig holds indicator and classification parameters.
type SignalConfig struct {
	DefaultSymbol  string  `json:"default_symbol" yaml:"default_symbol"`
	RSIPeriod      int     `json:"rsi_period" yaml:"rsi_period"`
	Oversold       float64 `json:"oversold" yaml:"oversold"`
	Overbought     float64 `json:"overbought" yaml:"overbought"`
	MomentumFilter bool    `json:"momentum_filter" yaml:"momentum_filter"`
	MomentumPeriod int     `json:"momentum_period" yaml:"momentum_period"`
	Lookback       string  `json:"lookback" yaml:"lookback"` // calendar time, e.g. "672h"
	Granularity    string  `json:"granularity" yaml:"granularity"`
}

// FeedConfig selects the price source.
type FeedConfig struct {
	Source     string `json:"source" yaml:"source"` // "oanda" or "csv"
	OandaToken string `json:"oanda_token,omitempty" yaml:"oanda_token,omitempty"`
	Practice   bool   `json:"practice" yaml:"practice"`
	CSVDir     string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	Timeout    string `json:"timeout" yaml:"timeout"`
}

type SinkConfig struct {
	Path string `json:"path" yaml:"path"`
}

// JournalConfig points at a directory for trades.csv / equity.csv. Empty
// disables journaling.
type JournalConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type TelegramConfig struct {
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	PollTimeout int    `json:"poll_timeout" yaml:"poll_timeout"` // seconds
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

type TraceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to
// JSON), applies environment overrides and validates.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads path if set, otherwise starts from Default. A .env file in the
// working directory is loaded first so its values reach ApplyEnv.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path != "" {
		return LoadFromFile(path)
	}
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and a few operational knobs from the
// environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("OANDA_TOKEN"); v != "" {
		c.Feed.OandaToken = v
	}
	if v := os.Getenv("FXSIGNAL_SIGNAL_FILE"); v != "" {
		c.Sink.Path = v
	}
	if v := os.Getenv("FXSIGNAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OANDA_PRACTICE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Feed.Practice = b
		}
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	a := c.Account
	if a.Size <= 0 {
		return fmt.Errorf("account.size must be positive")
	}
	if a.DailyDrawdown <= 0 {
		return fmt.Errorf("account.daily_drawdown must be positive")
	}
	if a.OverallDrawdown <= 0 {
		return fmt.Errorf("account.overall_drawdown must be positive")
	}
	if a.RiskPerTrade <= 0 {
		return fmt.Errorf("account.risk_per_trade must be positive")
	}
	if a.MaxTradesPerPair <= 0 {
		return fmt.Errorf("account.max_trades_per_pair must be positive")
	}
	if a.MinStopPips <= 0 {
		return fmt.Errorf("account.min_stop_pips must be positive")
	}
	if a.PipValue <= 0 {
		return fmt.Errorf("account.pip_value must be positive")
	}

	s := c.Signal
	if _, err := market.Lookup(s.DefaultSymbol); err != nil {
		return fmt.Errorf("signal.default_symbol: %w", err)
	}
	if s.RSIPeriod <= 1 {
		return fmt.Errorf("signal.rsi_period must be greater than 1")
	}
	if s.Oversold <= 0 || s.Overbought >= 100 || s.Oversold >= s.Overbought {
		return fmt.Errorf("signal thresholds must satisfy 0 < oversold < overbought < 100")
	}
	if s.MomentumFilter && s.MomentumPeriod <= 0 {
		return fmt.Errorf("signal.momentum_period must be positive when momentum_filter is on")
	}
	if d, err := time.ParseDuration(s.Lookback); err != nil || d <= 0 {
		return fmt.Errorf("signal.lookback must be a positive duration, got %q", s.Lookback)
	}
	if oanda.Granularity(s.Granularity).Duration() == 0 {
		return fmt.Errorf("signal.granularity %q is not supported", s.Granularity)
	}

	switch c.Feed.Source {
	case "oanda":
	case "csv":
		if c.Feed.CSVDir == "" {
			return fmt.Errorf("feed.csv_dir required for csv source")
		}
	default:
		return fmt.Errorf("feed.source must be 'oanda' or 'csv'")
	}
	if d, err := time.ParseDuration(c.Feed.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("feed.timeout must be a positive duration, got %q", c.Feed.Timeout)
	}

	if c.Sink.Path == "" {
		return fmt.Errorf("sink.path is required")
	}
	if c.Telegram.PollTimeout < 0 {
		return fmt.Errorf("telegram.poll_timeout cannot be negative")
	}
	return nil
}

// Limits returns the risk thresholds.
func (c *Config) Limits() risk.Limits {
	return risk.Limits{
		DailyDrawdown:    c.Account.DailyDrawdown,
		OverallDrawdown:  c.Account.OverallDrawdown,
		MaxTradesPerPair: c.Account.MaxTradesPerPair,
	}
}

// FeedTimeout returns the parsed fetch timeout. Call after Validate.
func (c *Config) FeedTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Feed.Timeout)
	return d
}

// Generator returns the signal generator settings. Call after Validate.
func (c *Config) Generator() signal.Config {
	lookback, _ := time.ParseDuration(c.Signal.Lookback)
	return signal.Config{
		Limits:         c.Limits(),
		RiskPerTrade:   c.Account.RiskPerTrade,
		StopLossPips:   c.Account.MinStopPips,
		TakeProfitPips: c.Account.TakeProfitPips,
		PipValue:       c.Account.PipValue,
		RSIPeriod:      c.Signal.RSIPeriod,
		Oversold:       c.Signal.Oversold,
		Overbought:     c.Signal.Overbought,
		MomentumFilter: c.Signal.MomentumFilter,
		MomentumPeriod: c.Signal.MomentumPeriod,
		Lookback:       lookback,
		Granularity:    oanda.Granularity(c.Signal.Granularity),
		Timeout:        c.FeedTimeout(),
	}
}

// Default returns the 15K funded account configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Size:             15000,
			DailyDrawdown:    750,
			OverallDrawdown:  1500,
			RiskPerTrade:     75,
			MaxTradesPerPair: 5,
			MinStopPips:      15,
			TakeProfitPips:   30,
			MaxSpread:        2.0,
			PipValue:         10,
		},
		Signal: SignalConfig{
			DefaultSymbol:  "EURUSD",
			RSIPeriod:      14,
			Oversold:       28,
			Overbought:     72,
			MomentumPeriod: 5,
			Lookback:       "672h", // 20 trading days
			Granularity:    string(oanda.H1),
		},
		Feed: FeedConfig{
			Source:   "oanda",
			Practice: true,
			Timeout:  "15s",
		},
		Sink:     SinkConfig{Path: "signals.txt"},
		Telegram: TelegramConfig{PollTimeout: 30},
		Log:      logger.Config{Level: "info", Format: "console"},
	}
}
