// Package metrics exposes the weather agent's Prometheus collectors,
// scraped off the operational HTTP surface at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the weather agent's Prometheus counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	SignalsGenerated *prometheus.CounterVec
	OrdersPlaced     *prometheus.CounterVec
	OrdersRejected   *prometheus.CounterVec
	KillSwitchEvents *prometheus.CounterVec
	Redemptions      *prometheus.CounterVec

	RealizedPnLUSD  prometheus.Gauge
	OpenExposureUSD *prometheus.GaugeVec
	ActiveMarkets   prometheus.Gauge
	SignalEdge      *prometheus.HistogramVec
}

// New builds a Metrics collector with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SignalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatheragent_signals_generated_total",
				Help: "Total number of trade signals enqueued by the Monitor",
			},
			[]string{"side", "metric"},
		),
		OrdersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatheragent_orders_placed_total",
				Help: "Total number of orders submitted to the venue",
			},
			[]string{"side"},
		),
		OrdersRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatheragent_orders_rejected_total",
				Help: "Total number of signals dropped by risk checks or venue errors",
			},
			[]string{"reason"},
		),
		KillSwitchEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatheragent_kill_switch_total",
				Help: "Total number of kill-switch activations",
			},
			[]string{"reason"},
		),
		Redemptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatheragent_redemptions_total",
				Help: "Total number of on-chain redemptions settled",
			},
			[]string{"status"},
		),
		RealizedPnLUSD: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "weatheragent_realized_pnl_usd",
				Help: "Today's realized P&L in USD",
			},
		),
		OpenExposureUSD: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "weatheragent_open_exposure_usd",
				Help: "Current open USD exposure by dimension",
			},
			[]string{"dimension"},
		),
		ActiveMarkets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "weatheragent_active_markets",
				Help: "Number of markets currently tracked as active",
			},
		),
		SignalEdge: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weatheragent_signal_edge",
				Help:    "Friction-adjusted edge of generated signals",
				Buckets: []float64{0, 0.02, 0.05, 0.08, 0.12, 0.2, 0.3, 0.5},
			},
			[]string{"side"},
		),
	}

	m.registry.MustRegister(
		m.SignalsGenerated,
		m.OrdersPlaced,
		m.OrdersRejected,
		m.KillSwitchEvents,
		m.Redemptions,
		m.RealizedPnLUSD,
		m.OpenExposureUSD,
		m.ActiveMarkets,
		m.SignalEdge,
	)

	return m
}

// Registry returns the underlying Prometheus registry for /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSignal records a signal the Monitor enqueued.
func (m *Metrics) RecordSignal(side, metric string, edge float64) {
	m.SignalsGenerated.WithLabelValues(side, metric).Inc()
	m.SignalEdge.WithLabelValues(side).Observe(edge)
}

// RecordOrder records an order the Executor submitted.
func (m *Metrics) RecordOrder(side string) {
	m.OrdersPlaced.WithLabelValues(side).Inc()
}

// RecordRejection records a signal the Executor or risk manager dropped.
func (m *Metrics) RecordRejection(reason string) {
	m.OrdersRejected.WithLabelValues(reason).Inc()
}

// RecordKillSwitch records a kill-switch activation.
func (m *Metrics) RecordKillSwitch(reason string) {
	m.KillSwitchEvents.WithLabelValues(reason).Inc()
}

// RecordRedemption records a settled (or failed) redemption.
func (m *Metrics) RecordRedemption(status string) {
	m.Redemptions.WithLabelValues(status).Inc()
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide Metrics instance, built on first use.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
