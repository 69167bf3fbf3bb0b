// Package metrics provides Prometheus metrics for the defend100 integrity service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Engine
	scoresComputed prometheus.Counter
	scoringLatency prometheus.Histogram
	cumulativeXP   prometheus.Gauge
	level          prometheus.Gauge
	trackedDays    prometheus.Gauge
	configFallback *prometheus.CounterVec

	// Write-behind persistence
	writesEnqueued  *prometheus.CounterVec
	writesApplied   *prometheus.CounterVec
	writesFailed    *prometheus.CounterVec
	writesDropped   *prometheus.CounterVec
	writesDuplicate prometheus.Counter
	writeLatency    *prometheus.HistogramVec
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	writerCount     prometheus.Gauge

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton collectors

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // isolated from the default registerer

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "defend100",
		subsystem:        "integrity",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.scoresComputed = auto.NewCounter(m.counterOpts("scores_computed_total", "Total number of daily scores computed"))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts("scoring_latency_milliseconds", "Latency of score and history projections in milliseconds"))
	m.cumulativeXP = auto.NewGauge(m.gaugeOpts("cumulative_xp", "Sum of all historical daily scores"))
	m.level = auto.NewGauge(m.gaugeOpts("level", "Current level derived from cumulative XP"))
	m.trackedDays = auto.NewGauge(m.gaugeOpts("tracked_days", "Number of dates with at least one recorded value"))
	m.configFallback = auto.NewCounterVec(m.counterOpts("config_fallback_total", "Stored data that was malformed and replaced by defaults"), []string{"kind"})

	m.writesEnqueued = auto.NewCounterVec(m.counterOpts("writes_enqueued_total", "Persistence writes accepted by the write queue"), []string{"kind"})
	m.writesApplied = auto.NewCounterVec(m.counterOpts("writes_applied_total", "Persistence writes applied by a writer"), []string{"kind"})
	m.writesFailed = auto.NewCounterVec(m.counterOpts("writes_failed_total", "Persistence writes that failed (not retried)"), []string{"kind"})
	m.writesDropped = auto.NewCounterVec(m.counterOpts("writes_dropped_total", "Persistence writes rejected by a full or closed queue"), []string{"kind", "reason"})
	m.writesDuplicate = auto.NewCounter(m.counterOpts("writes_duplicate_total", "Client writes ignored because their write id was already seen"))
	m.writeLatency = auto.NewHistogramVec(m.histogramOpts("write_latency_milliseconds", "Time spent applying a persistence write"), []string{"kind"})
	m.queueSize = auto.NewGauge(m.gaugeOpts("write_queue_size", "Current number of pending persistence writes"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("write_queue_capacity", "Capacity of the persistence write queue"))
	m.writerCount = auto.NewGauge(m.gaugeOpts("writer_count", "Number of persistence writers"))

	m.repositoryLatency = auto.NewHistogramVec(m.histogramOpts("repository_operation_latency_milliseconds", "Latency of storage operations by driver and operation"), []string{"driver", "operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.rateLimited = auto.NewCounterVec(m.counterOpts("http_rate_limited_total", "HTTP requests rejected by the rate limiter"), []string{"endpoint"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total", "Errors by component and type"), []string{"component", "type"})
}

// RecordScoreComputed counts one score computation and its latency.
func RecordScoreComputed(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoresComputed.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// UpdateProgression publishes the cumulative XP, level and tracked day count.
func UpdateProgression(xp, level, days int) {
	if !globalManager.enabled {
		return
	}
	globalManager.cumulativeXP.Set(float64(xp))
	globalManager.level.Set(float64(level))
	globalManager.trackedDays.Set(float64(days))
}

// RecordConfigFallback counts malformed stored data replaced by defaults.
func RecordConfigFallback(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.configFallback.WithLabelValues(kind).Inc()
}

// RecordWriteEnqueued counts a write accepted by the queue.
func RecordWriteEnqueued(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.writesEnqueued.WithLabelValues(kind).Inc()
}

// RecordWriteApplied counts a write persisted successfully.
func RecordWriteApplied(kind string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.writesApplied.WithLabelValues(kind).Inc()
	globalManager.writeLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordWriteFailed counts a write the backend refused.
func RecordWriteFailed(kind string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.writesFailed.WithLabelValues(kind).Inc()
	globalManager.writeLatency.WithLabelValues(kind).Observe(latencyMs)
	globalManager.errorsByComponent.WithLabelValues("writer", "persist_failed").Inc()
}

// RecordWriteDropped counts a write that never reached a writer.
func RecordWriteDropped(kind, reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.writesDropped.WithLabelValues(kind, reason).Inc()
	globalManager.errorsByComponent.WithLabelValues("queue", reason).Inc()
}

// RecordWriteDuplicate counts a replayed client write id.
func RecordWriteDuplicate() {
	if !globalManager.enabled {
		return
	}
	globalManager.writesDuplicate.Inc()
}

// UpdateQueueSize sets the pending write gauge.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the write queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWriterCount sets the writer gauge.
func UpdateWriterCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.writerCount.Set(float64(count))
}

// RecordRepositoryOperation observes one storage call.
func RecordRepositoryOperation(driver, operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryLatency.WithLabelValues(driver, operation).Observe(latencyMs)
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
