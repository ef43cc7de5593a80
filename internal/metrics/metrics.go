// Package metrics exposes Prometheus collectors for the trading engine.
//
//   - predictipulse_opportunities_total{mode,actionable}
//   - predictipulse_trades_total{mode,result}
//   - predictipulse_orders_total{venue,status}
//   - predictipulse_bankroll_usd
//   - predictipulse_total_pnl_usd
//   - predictipulse_cycle_errors_total{stage}
//   - predictipulse_cycle_duration_seconds{mode}
//   - predictipulse_queue_depth{queue}
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors
type Metrics struct {
	opportunities *prometheus.CounterVec
	trades        *prometheus.CounterVec
	orders        *prometheus.CounterVec
	bankroll      prometheus.Gauge
	totalPnL      prometheus.Gauge
	cycleErrors   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	queueDepth    *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opportunities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictipulse_opportunities_total",
				Help: "Opportunities published",
			},
			[]string{"mode", "actionable"},
		),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictipulse_trades_total",
				Help: "Trades recorded by result (WIN|LOSS|PENDING)",
			},
			[]string{"mode", "result"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictipulse_orders_total",
				Help: "Orders submitted to a venue",
			},
			[]string{"venue", "status"},
		),
		bankroll: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "predictipulse_bankroll_usd",
				Help: "Current bankroll in USD",
			},
		),
		totalPnL: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "predictipulse_total_pnl_usd",
				Help: "Total P&L in USD",
			},
		),
		cycleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictipulse_cycle_errors_total",
				Help: "Run-loop failures by stage",
			},
			[]string{"stage"},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predictipulse_cycle_duration_seconds",
				Help:    "Run-loop cycle duration excluding the idle wait",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"mode"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predictipulse_queue_depth",
				Help: "Undelivered items per fan-out queue",
			},
			[]string{"queue"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.opportunities, m.trades, m.orders,
			m.bankroll, m.totalPnL,
			m.cycleErrors, m.cycleDuration, m.queueDepth,
		)
	}
	return m
}

func (m *Metrics) IncOpportunity(mode string, actionable bool) {
	if m == nil {
		return
	}
	m.opportunities.WithLabelValues(mode, strconv.FormatBool(actionable)).Inc()
}

func (m *Metrics) IncTrade(mode, result string) {
	if m == nil {
		return
	}
	m.trades.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) IncOrder(venue, status string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(venue, status).Inc()
}

// SetAccount records bankroll and total P&L
func (m *Metrics) SetAccount(bankroll, totalPnL float64) {
	if m == nil {
		return
	}
	m.bankroll.Set(bankroll)
	m.totalPnL.Set(totalPnL)
}

func (m *Metrics) IncCycleError(stage string) {
	if m == nil {
		return
	}
	m.cycleErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveCycle(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// SetQueueDepths records the fan-out backlog
func (m *Metrics) SetQueueDepths(logs, opportunities, trades int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues("logs").Set(float64(logs))
	m.queueDepth.WithLabelValues("opportunities").Set(float64(opportunities))
	m.queueDepth.WithLabelValues("trades").Set(float64(trades))
}
