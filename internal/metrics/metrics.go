// Package metrics exposes Prometheus instrumentation for scan sessions
// and the output parser.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rangescan"

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal    *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
	LinesParsed   prometheus.Counter
	FindingsTotal *prometheus.CounterVec
	ScanProgress  prometheus.Gauge
}

// New creates a metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "total",
			Help:      "Total number of scan sessions by template and status.",
		}, []string{"scan_type", "status"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "duration_seconds",
			Help:      "Scan session duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"scan_type"}),
		LinesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "lines_total",
			Help:      "Total number of scanner output lines fed to the parser.",
		}),
		FindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "findings_total",
			Help:      "Total number of findings extracted by severity.",
		}, []string{"severity"}),
		ScanProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "progress_percent",
			Help:      "Progress of the in-flight scan session.",
		}),
	}

	registry.MustRegister(
		m.ScansTotal,
		m.ScanDuration,
		m.LinesParsed,
		m.FindingsTotal,
		m.ScanProgress,
	)

	return m
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the shared metrics instance.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
