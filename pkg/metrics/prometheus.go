// Package metrics provides Prometheus metrics for the trade digest service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Line outcomes recorded by RecordLine.
const (
	OutcomeEvent     = "event"
	OutcomeIgnored   = "ignored"
	OutcomeMalformed = "malformed"
)

// sizeBuckets cover uploads and reports from 1KiB to 256MiB.
var sizeBuckets = prometheus.ExponentialBuckets(1024, 4, 10) //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the digest service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Engine Metrics - what the parser saw
	linesScanned    *prometheus.CounterVec
	eventsExtracted *prometheus.CounterVec
	digestDuration  prometheus.Histogram
	digestFailures  prometheus.Counter

	// Report Metrics
	reportsGenerated prometheus.Counter
	reportFailures   prometheus.Counter
	reportBytes      prometheus.Histogram
	uploadBytes      prometheus.Histogram
	reportsSwept     prometheus.Counter
	reportsOnDisk    prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tradedigest",
		subsystem:        "digest",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.linesScanned = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "lines_scanned_total",
		Help:        "Log lines read, by outcome (event, ignored, malformed)",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.eventsExtracted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_extracted_total",
		Help:        "Sale and purchase events extracted from logs",
		ConstLabels: labels,
	}, []string{"kind"})

	m.digestDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_milliseconds",
		Help:        "Time to scan, aggregate and rank one log",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.digestFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_failures_total",
		Help:        "Runs aborted because the input could not be read",
		ConstLabels: labels,
	})

	m.reportsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "generated_total",
		Help:        "Workbooks written",
		ConstLabels: labels,
	})

	m.reportFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "failures_total",
		Help:        "Workbooks that could not be written",
		ConstLabels: labels,
	})

	m.reportBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "size_bytes",
		Help:        "Size of written workbooks",
		Buckets:     sizeBuckets,
		ConstLabels: labels,
	})

	m.uploadBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "upload_size_bytes",
		Help:        "Size of uploaded logs",
		Buckets:     sizeBuckets,
		ConstLabels: labels,
	})

	m.reportsSwept = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "swept_total",
		Help:        "Expired workbooks removed by the janitor",
		ConstLabels: labels,
	})

	m.reportsOnDisk = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "on_disk",
		Help:        "Workbooks currently available for download",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "errors_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Engine Metrics Functions.

// RecordLine counts one scanned line under outcome.
func RecordLine(outcome string) error {
	switch outcome {
	case OutcomeEvent, OutcomeIgnored, OutcomeMalformed:
		globalManager.linesScanned.WithLabelValues(outcome).Inc()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
}

// RecordLines adds n lines under outcome in one step.
func RecordLines(outcome string, n int) {
	if n > 0 {
		globalManager.linesScanned.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordEvents adds n extracted events of kind.
func RecordEvents(kind string, n int) {
	if n > 0 {
		globalManager.eventsExtracted.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordDigestDuration records the duration of one run in milliseconds.
func RecordDigestDuration(durationMs float64) {
	globalManager.digestDuration.Observe(durationMs)
}

// RecordDigestFailure increments the failed run counter.
func RecordDigestFailure() {
	globalManager.digestFailures.Inc()
}

// Report Metrics Functions.

// RecordReportGenerated counts a written workbook of size bytes.
func RecordReportGenerated(size int64) {
	globalManager.reportsGenerated.Inc()
	globalManager.reportBytes.Observe(float64(size))
}

// RecordReportFailure increments the failed workbook counter.
func RecordReportFailure() {
	globalManager.reportFailures.Inc()
}

// RecordUpload records the size of an uploaded log.
func RecordUpload(size int64) {
	globalManager.uploadBytes.Observe(float64(size))
}

// RecordReportsSwept adds n removed workbooks.
func RecordReportsSwept(n int) {
	if n > 0 {
		globalManager.reportsSwept.Add(float64(n))
	}
}

// UpdateReportsOnDisk sets the number of workbooks available for download.
func UpdateReportsOnDisk(n int) {
	globalManager.reportsOnDisk.Set(float64(n))
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
