// Package metrics provides Prometheus metrics for the mahjic rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ratingChangeBuckets spans the reachable per-round change for a 4-seat
// table: 3 opponents * (K=32 + bonus cap 5).
var ratingChangeBuckets = []float64{-100, -50, -25, -10, -5, -1, 0, 1, 5, 10, 25, 50, 100} //nolint:gochecknoglobals // fixed bucket layout

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Ingest
	sessionsSubmitted  prometheus.Counter
	sessionsRejected   *prometheus.CounterVec
	sessionsDuplicate  prometheus.Counter
	roundsScored       prometheus.Counter
	verifiedSkipped    prometheus.Counter
	playersCreated     prometheus.Counter
	ratingChange       *prometheus.HistogramVec
	ingestLatency      prometheus.Histogram
	leaderboardPlayers prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec

	// Worker
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryLatency *prometheus.HistogramVec
	repositoryErrors  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "mahjic",
		subsystem:      "ratings",
		latencyBuckets: prometheus.DefBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.sessionsSubmitted = m.counter("sessions_submitted_total", "Sessions accepted and committed")
	m.sessionsRejected = m.counterVec("sessions_rejected_total", "Sessions rejected before or during ingest", "reason")
	m.sessionsDuplicate = m.counter("sessions_duplicate_total", "Submissions rejected by the idempotency cache")
	m.roundsScored = m.counter("rounds_scored_total", "Rounds run through the rating engine")
	m.verifiedSkipped = m.counter("verified_rounds_skipped_total", "Rounds with fewer than two verified seats")
	m.playersCreated = m.counter("players_created_total", "Provisional players created by ingest")
	m.ratingChange = m.histogramVec("rating_change", "Per-player rating change per round", ratingChangeBuckets, "family")
	m.ingestLatency = m.histogram("ingest_latency_milliseconds", "Latency of a full session transaction", m.latencyBuckets)
	m.leaderboardPlayers = m.gauge("leaderboard_players", "Players eligible for the public leaderboard")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Submissions waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size / capacity")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Enqueue failures by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Running ingest workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that finished with an error")

	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Repository operation latency", m.latencyBuckets, "operation")
	m.repositoryErrors = m.counterVec("repository_errors_total", "Repository failures by operation", "operation")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ingest.

// RecordSessionSubmitted counts a committed session.
func RecordSessionSubmitted() { globalManager.sessionsSubmitted.Inc() }

// RecordSessionRejected counts a rejected session by reason.
func RecordSessionRejected(reason string) { globalManager.sessionsRejected.WithLabelValues(reason).Inc() }

// RecordSessionDuplicate counts a submission rejected by idempotency.
func RecordSessionDuplicate() { globalManager.sessionsDuplicate.Inc() }

// RecordRoundScored counts a round scored by the engine.
func RecordRoundScored() { globalManager.roundsScored.Inc() }

// RecordVerifiedSkipped counts a round without a verified family.
func RecordVerifiedSkipped() { globalManager.verifiedSkipped.Inc() }

// RecordPlayerCreated counts a newly created provisional player.
func RecordPlayerCreated() { globalManager.playersCreated.Inc() }

// RecordRatingChange observes one player's change for a family ("open" or "verified").
func RecordRatingChange(family string, change float64) {
	globalManager.ratingChange.WithLabelValues(family).Observe(change)
}

// RecordIngestLatency observes the duration of a session transaction.
func RecordIngestLatency(latencyMs float64) { globalManager.ingestLatency.Observe(latencyMs) }

// UpdateLeaderboardPlayers sets the number of indexed leaderboard players.
func UpdateLeaderboardPlayers(count int) { globalManager.leaderboardPlayers.Set(float64(count)) }

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

// RecordQueueEnqueueError counts an enqueue failure.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Worker.

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a job that failed.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Repository.

// RecordRepositoryLatency records the latency of a repository operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError(operation string) {
	globalManager.repositoryErrors.WithLabelValues(operation).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry the package-level helpers write to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
