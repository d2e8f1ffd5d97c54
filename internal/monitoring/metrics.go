// Package monitoring exposes Prometheus metrics for audit runs and a
// background checker that tracks run health from the store.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

const namespace = "adsellix"

var stageBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 120}

// Metrics holds the audit collectors on a private registry. All methods
// are safe on a nil receiver so callers may run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	ReportsTotal  *prometheus.CounterVec
	RowsDropped   *prometheus.CounterVec
	Decisions     *prometheus.CounterVec
	Strategies    *prometheus.CounterVec
	WastedSpend   prometheus.Gauge
	RunsByStatus  *prometheus.GaugeVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total", Help: "Audit runs by final status.",
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "stage_duration_seconds", Help: "Pipeline stage duration.",
			Buckets: stageBuckets,
		}, []string{"stage"}),
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reports_total", Help: "Normalized reports by outcome.",
		}, []string{"report", "outcome"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rows_dropped_total", Help: "Rows dropped during coercion.",
		}, []string{"report"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "item_decisions_total", Help: "Identifier decisions.",
		}, []string{"decision"}),
		Strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_strategies_total", Help: "Query strategies.",
		}, []string{"strategy"}),
		WastedSpend: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_wasted_spend", Help: "Eliminate-query spend in the last run.",
		}),
		RunsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "stored_runs", Help: "Persisted runs by status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.RunsTotal, m.StageDuration, m.ReportsTotal, m.RowsDropped,
		m.Decisions, m.Strategies, m.WastedSpend, m.RunsByStatus,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records a stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordReport counts one normalized report.
func (m *Metrics) RecordReport(stat model.ReportStat) {
	if m == nil {
		return
	}
	outcome := "ok"
	if stat.ErrorKind != "" {
		outcome = stat.ErrorKind
	}
	m.ReportsTotal.WithLabelValues(string(stat.Report), outcome).Inc()
	m.RowsDropped.WithLabelValues(string(stat.Report)).Add(float64(stat.Dropped))
}

// RecordRun counts a finished run and its classifications.
func (m *Metrics) RecordRun(status model.RunStatus, res *model.Result) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(status)).Inc()
	if res == nil {
		return
	}
	for d, n := range res.Summary.Decisions {
		m.Decisions.WithLabelValues(string(d)).Add(float64(n))
	}
	for s, n := range res.Summary.Strategies {
		m.Strategies.WithLabelValues(string(s)).Add(float64(n))
	}
	m.WastedSpend.Set(res.Summary.WastedSpend.Or(0))
}
