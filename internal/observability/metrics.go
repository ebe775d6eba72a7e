// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	BarsProcessed prometheus.Counter
	TradesTotal   *prometheus.CounterVec
	LastReturn    *prometheus.GaugeVec

	// Market data metrics
	CacheLookups  *prometheus.CounterVec
	BarsFetched   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Persistence metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Server metrics
	ActiveStreams prometheus.Gauge

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "backtest_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by strategy and status",
		}, []string{"strategy", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"strategy"}),
		BarsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "bars_processed_total",
			Help:      "Total number of price bars simulated",
		}),
		TradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_total",
			Help:      "Total number of executed buys and sells by strategy",
		}, []string{"strategy"}),
		LastReturn: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_total_return",
			Help:      "Total return of the most recent run per ticker and strategy",
		}, []string{"ticker", "strategy"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "lookups_total",
			Help:      "Price series lookups by the tier that served them",
		}, []string{"tier"}),
		BarsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "bars_fetched_total",
			Help:      "Total number of bars returned by upstream fetchers",
		}, []string{"source"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		ActiveStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_streams",
			Help:      "Number of open websocket backtest streams",
		}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// Cache tiers reported by RecordLookup.
const (
	TierCache   = "cache"
	TierStore   = "store"
	TierFetcher = "fetcher"
)

// RecordRun records a finished simulation run.
func (m *Metrics) RecordRun(ticker, strategy string, bars, trades int, totalReturn float64, d time.Duration, err error) {
	if err != nil {
		m.RunsTotal.WithLabelValues(strategy, "error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues(strategy, "ok").Inc()
	m.RunDuration.WithLabelValues(strategy).Observe(d.Seconds())
	m.BarsProcessed.Add(float64(bars))
	m.TradesTotal.WithLabelValues(strategy).Add(float64(trades))
	m.LastReturn.WithLabelValues(ticker, strategy).Set(totalReturn)
	m.LastSuccessfulRun.SetToCurrentTime()
}

// RecordLookup records which tier served a price series lookup.
func (m *Metrics) RecordLookup(tier string) {
	m.CacheLookups.WithLabelValues(tier).Inc()
}

// RecordFetch records an upstream fetch.
func (m *Metrics) RecordFetch(source string, bars int, d time.Duration) {
	m.BarsFetched.WithLabelValues(source).Add(float64(bars))
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
