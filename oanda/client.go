// Package oanda is a small client for the OANDA v20 instruments API.
package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/fxsignal/market"
)

const (
	// PracticeURL is the URL for OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the URL for OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"

	// MaxCount is the largest candle count OANDA serves per request.
	MaxCount = 5000
)

// Granularity represents the time frame for candles
type Granularity string

const (
	M1  Granularity = "M1"  // 1 minute
	M5  Granularity = "M5"  // 5 minutes
	M15 Granularity = "M15" // 15 minutes
	M30 Granularity = "M30" // 30 minutes
	H1  Granularity = "H1"  // 1 hour
	H4  Granularity = "H4"  // 4 hours
	D   Granularity = "D"   // 1 day
)

// Duration returns the bar length, 0 if unknown.
func (g Granularity) Duration() time.Duration {
	switch g {
	case M1:
		return time.Minute
	case M5:
		return 5 * time.Minute
	case M15:
		return 15 * time.Minute
	case M30:
		return 30 * time.Minute
	case H1:
		return time.Hour
	case H4:
		return 4 * time.Hour
	case D:
		return 24 * time.Hour
	}
	return 0
}

// Client represents an OANDA API client
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient creates a new OANDA API client
func NewClient(token string, practice bool, timeout time.Duration) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// CandlesRequest represents parameters for fetching mid candles.
type CandlesRequest struct {
	Instrument  string // "EUR_USD"
	Granularity Granularity
	Count       int // used if > 0 (with From), otherwise From/To
	From        time.Time
	To          time.Time
}

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool        `json:"complete"`
	Volume   int         `json:"volume"`
	Time     string      `json:"time"`
	Mid      *candleData `json:"mid,omitempty"`
}

type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

// GetCandles fetches completed mid candles, oldest first.
func (c *Client) GetCandles(ctx context.Context, req CandlesRequest) ([]market.Candle, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("oanda: missing token")
	}
	if c.BaseURL == "" {
		return nil, fmt.Errorf("oanda: missing base url")
	}
	if req.Instrument == "" {
		return nil, fmt.Errorf("oanda: missing instrument")
	}
	if req.Granularity == "" {
		req.Granularity = H1
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = fmt.Sprintf("/v3/instruments/%s/candles", req.Instrument)

	q := u.Query()
	q.Set("price", "M")
	q.Set("granularity", string(req.Granularity))
	if req.Count > 0 {
		if req.Count > MaxCount {
			return nil, fmt.Errorf("oanda: count cannot exceed %d", MaxCount)
		}
		q.Set("count", strconv.Itoa(req.Count))
		// from+count pages forward; to is not allowed alongside count.
		if !req.From.IsZero() {
			q.Set("from", req.From.UTC().Format(time.RFC3339))
		}
	} else {
		if !req.From.IsZero() {
			q.Set("from", req.From.UTC().Format(time.RFC3339))
		}
		if !req.To.IsZero() {
			q.Set("to", req.To.UTC().Format(time.RFC3339))
		}
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("oanda: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	httpReq.Header.Set("Accept-Datetime-Format", "RFC3339")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oanda: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("oanda candles http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("oanda: decode response: %w", err)
	}

	candles := make([]market.Candle, 0, len(cr.Candles))
	for _, ac := range cr.Candles {
		// The still forming bar would move the RSI on every request.
		if !ac.Complete || ac.Mid == nil {
			continue
		}
		candle, err := ac.toCandle()
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func (ac apiCandle) toCandle() (market.Candle, error) {
	t, err := time.Parse(time.RFC3339Nano, ac.Time)
	if err != nil {
		return market.Candle{}, fmt.Errorf("oanda: parse time %s: %w", ac.Time, err)
	}

	var vals [4]float64
	for i, s := range []string{ac.Mid.O, ac.Mid.H, ac.Mid.L, ac.Mid.C} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("oanda: parse price %q: %w", s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return market.Candle{}, fmt.Errorf("oanda: parse price %q: not a finite number", s)
		}
		vals[i] = v
	}

	return market.Candle{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Time:   t.UTC(),
		Volume: float64(ac.Volume),
	}, nil
}
