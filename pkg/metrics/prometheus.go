package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses     *prometheus.CounterVec
	barsIngested *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheOps     *prometheus.CounterVec
	wsClients    prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		analyses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_analyses_total",
				Help: "Total number of analysis runs by strategy and outcome",
			},
			[]string{"strategy", "status"},
		),
		barsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_bars_ingested_total",
				Help: "Total number of daily bars ingested per symbol",
			},
			[]string{"symbol"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_last_close",
				Help: "Last ingested closing price for a symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_operation_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_cache_requests_total",
				Help: "Cache lookups by operation and result",
			},
			[]string{"operation", "result"},
		),
		wsClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fincast_ws_clients",
				Help: "Currently connected WebSocket clients",
			},
		),
	}
}

// RecordAnalysis records a completed analysis run.
func (r *Recorder) RecordAnalysis(strategy, status string) {
	r.analyses.WithLabelValues(strategy, status).Inc()
}

// RecordBarsIngested records bars accepted into storage for a symbol.
func (r *Recorder) RecordBarsIngested(symbol string, n int) {
	if n <= 0 {
		return
	}
	r.barsIngested.WithLabelValues(symbol).Add(float64(n))
}

// RecordLastClose records the most recent closing price for a symbol.
func (r *Recorder) RecordLastClose(symbol string, close float64) {
	r.lastClose.WithLabelValues(symbol).Set(close)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCache records a cache lookup outcome.
func (r *Recorder) RecordCache(op string, hit bool) {
	r.cacheOps.WithLabelValues(op, cacheResult(hit)).Inc()
}

// RecordWSClients records the current WebSocket client count.
func (r *Recorder) RecordWSClients(n int) {
	r.wsClients.Set(float64(n))
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// Noop discards all measurements. Tests use it so use cases don't need
// a Prometheus registry.
type Noop struct{}

func (Noop) RecordAnalysis(strategy, status string)       {}
func (Noop) RecordBarsIngested(symbol string, n int)      {}
func (Noop) RecordLastClose(symbol string, close float64) {}
func (Noop) RecordError(kind string)                      {}
func (Noop) RecordLatency(op string, seconds float64)     {}
func (Noop) RecordCache(op string, hit bool)              {}
func (Noop) RecordWSClients(n int)                        {}
