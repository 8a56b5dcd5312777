// Package metrics provides Prometheus metrics for the pupcare service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the pupcare service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Event log
	eventsLogged    *prometheus.CounterVec
	eventsReplaced  prometheus.Counter
	eventsDeleted   prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsTotal     prometheus.Gauge
	coverageGaps    prometheus.Gauge

	// Derived views
	sleepSessions         prometheus.Gauge
	ongoingSleepSessions  prometheus.Gauge
	walkSessions          prometheus.Gauge
	reconstructionLatency prometheus.Histogram
	predictions           *prometheus.CounterVec
	currentUrgencyRank    prometheus.Gauge
	minutesUntilExpected  prometheus.Gauge
	urgencyTransitions    *prometheus.CounterVec

	// Repository
	repositoryWriteLatency prometheus.Histogram
	repositoryReadLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    *prometheus.CounterVec

	// Worker
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pupcare",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// RefreshInterval returns how often gauge refreshers should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether the manager records anything.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	latencyBuckets := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

	m.eventsLogged = m.counterVec("events_logged_total", "Events appended to the log by type", "type")
	m.eventsReplaced = m.counter("events_replaced_total", "Events replaced by an edit")
	m.eventsDeleted = m.counter("events_deleted_total", "Events removed from the log")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Duplicate event submissions detected")
	m.eventsTotal = m.gauge("events", "Events currently in the log")
	m.coverageGaps = m.gauge("coverage_gaps", "Coverage gaps currently recorded")

	m.sleepSessions = m.gauge("sleep_sessions", "Sleep sessions in the last reconstruction")
	m.ongoingSleepSessions = m.gauge("sleep_sessions_ongoing", "Ongoing sleep sessions in the last reconstruction")
	m.walkSessions = m.gauge("walk_sessions", "Walk sessions in the last reconstruction")
	m.reconstructionLatency = m.histogram("reconstruction_latency_milliseconds",
		"Time spent reconstructing sessions", m.histogramBuckets)
	m.predictions = m.counterVec("predictions_total", "Predictions computed by urgency", "urgency")
	m.currentUrgencyRank = m.gauge("urgency_rank", "Ladder rank of the latest potty urgency, -1 for overrides")
	m.minutesUntilExpected = m.gauge("minutes_until_expected", "Minutes until the next expected potty")
	m.urgencyTransitions = m.counterVec("urgency_transitions_total", "Urgency changes observed by the monitor", "from", "to")

	m.repositoryWriteLatency = m.histogram("repository_write_latency_milliseconds", "Repository write latency", latencyBuckets)
	m.repositoryReadLatency = m.histogram("repository_read_latency_milliseconds", "Repository snapshot latency", latencyBuckets)

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status", ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration", ConstLabels: m.customLabels, Buckets: latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Signals waiting in the monitor queue")
	m.queueCapacity = m.gauge("queue_capacity", "Monitor queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Monitor queue utilization")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Signals enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Signals dequeued")
	m.queueRejected = m.counterVec("queue_rejected_total", "Signals rejected by reason", "reason")

	m.workerActiveCount = m.gauge("worker_active", "Running monitor workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Monitor evaluation latency", latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Monitor evaluation failures")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds", latencyBuckets)
}

// Event log.

// RecordEventLogged increments the logged counter for an event type.
func RecordEventLogged(eventType string) {
	globalManager.eventsLogged.WithLabelValues(eventType).Inc()
}

// RecordEventReplaced increments the replaced counter.
func RecordEventReplaced() { globalManager.eventsReplaced.Inc() }

// RecordEventDeleted increments the deleted counter.
func RecordEventDeleted() { globalManager.eventsDeleted.Inc() }

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

// UpdateEventsTotal sets the number of events in the log.
func UpdateEventsTotal(count int) { globalManager.eventsTotal.Set(float64(count)) }

// UpdateCoverageGaps sets the number of recorded coverage gaps.
func UpdateCoverageGaps(count int) { globalManager.coverageGaps.Set(float64(count)) }

// Derived views.

// UpdateSessionCounts records the outcome of a reconstruction.
func UpdateSessionCounts(sleep, ongoing, walks int) {
	globalManager.sleepSessions.Set(float64(sleep))
	globalManager.ongoingSleepSessions.Set(float64(ongoing))
	globalManager.walkSessions.Set(float64(walks))
}

// RecordReconstructionLatency records reconstruction latency in milliseconds.
func RecordReconstructionLatency(latencyMs float64) {
	globalManager.reconstructionLatency.Observe(latencyMs)
}

// RecordPrediction counts a prediction and publishes its urgency rank.
func RecordPrediction(urgency string, rank int) {
	globalManager.predictions.WithLabelValues(urgency).Inc()
	globalManager.currentUrgencyRank.Set(float64(rank))
}

// UpdateMinutesUntilExpected sets the minutes remaining until the expected occurrence.
func UpdateMinutesUntilExpected(minutes float64) {
	globalManager.minutesUntilExpected.Set(minutes)
}

// RecordUrgencyTransition counts an urgency change.
func RecordUrgencyTransition(from, to string) {
	globalManager.urgencyTransitions.WithLabelValues(from, to).Inc()
}

// Repository.

// RecordRepositoryWriteLatency records a write latency in milliseconds.
func RecordRepositoryWriteLatency(latencyMs float64) {
	globalManager.repositoryWriteLatency.Observe(latencyMs)
}

// RecordRepositoryReadLatency records a snapshot latency in milliseconds.
func RecordRepositoryReadLatency(latencyMs float64) {
	globalManager.repositoryReadLatency.Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a rejected enqueue.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// Worker.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
