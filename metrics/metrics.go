// Package metrics holds the Prometheus instruments of the signal bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	SignalsTotal   *prometheus.CounterVec // labels: direction
	BlockedTotal   *prometheus.CounterVec // labels: code
	ErrorsTotal    *prometheus.CounterVec // labels: kind
	TradesRecorded *prometheus.CounterVec // labels: symbol
	LastRSI        *prometheus.GaugeVec   // labels: symbol
	Balance        prometheus.Gauge
	FetchDuration  prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignal_signals_total",
			Help: "Evaluated signals by direction",
		}, []string{"direction"}),
		BlockedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignal_blocked_total",
			Help: "Signal requests blocked by the risk guard",
		}, []string{"code"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignal_errors_total",
			Help: "Failed signal requests by kind",
		}, []string{"kind"}),
		TradesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignal_trades_recorded_total",
			Help: "Executions confirmed through the chat",
		}, []string{"symbol"}),
		LastRSI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fxsignal_rsi",
			Help: "Last computed RSI",
		}, []string{"symbol"}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxsignal_balance_usd",
			Help: "Current account balance",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxsignal_fetch_duration_seconds",
			Help:    "Price series fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.SignalsTotal,
		m.BlockedTotal,
		m.ErrorsTotal,
		m.TradesRecorded,
		m.LastRSI,
		m.Balance,
		m.FetchDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
