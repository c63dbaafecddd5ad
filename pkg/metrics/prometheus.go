// Package metrics provides Prometheus metrics for the reputation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the reputation engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Business metrics
	recalculationsTotal   prometheus.Counter
	recalculationFailures prometheus.Counter
	overridesTotal        prometheus.Counter
	overrideRejections    prometheus.Counter
	snapshotsAppended     prometheus.Counter
	tierTransitions       prometheus.Counter

	// Store metrics
	storeSaveLatency  prometheus.Histogram
	storeQueryLatency prometheus.Histogram
	saveConflicts     prometheus.Counter
	recordsTotal      prometheus.Gauge
	eligibleRecords   prometheus.Gauge
	tierDistribution  *prometheus.GaugeVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "prive",
		subsystem:        "reputation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.recalculationsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recalculations_total",
		Help:      "Total number of completed reputation recalculations.",
	})
	m.recalculationFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recalculation_failures_total",
		Help:      "Total number of recalculations aborted by a failing signal source.",
	})
	m.overridesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "overrides_total",
		Help:      "Total number of applied administrative pillar overrides.",
	})
	m.overrideRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "override_rejections_total",
		Help:      "Total number of overrides rejected by validation.",
	})
	m.snapshotsAppended = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_appended_total",
		Help:      "Total number of history snapshots appended.",
	})
	m.tierTransitions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tier_transitions_total",
		Help:      "Total number of computations that changed a user's tier.",
	})

	m.storeSaveLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_save_latency_ms",
		Help:      "Latency of record saves in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_ms",
		Help:      "Latency of record reads in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.saveConflicts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_save_conflicts_total",
		Help:      "Total number of optimistic-concurrency save conflicts.",
	})
	m.recordsTotal = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_total",
		Help:      "Number of stored reputation records.",
	})
	m.eligibleRecords = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eligible_records",
		Help:      "Number of records currently eligible for the rewards layer.",
	})
	m.tierDistribution = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tier_distribution",
		Help:      "Number of records per membership tier.",
	}, []string{"tier"})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and kind.",
	}, []string{"component", "kind"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines.",
	})
}

// Handler returns an http.Handler serving the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level helpers against the global manager.

// RecordRecalculation increments the completed-recalculation counter.
func RecordRecalculation() {
	if globalManager.enabled {
		globalManager.recalculationsTotal.Inc()
	}
}

// RecordRecalculationFailure increments the aborted-recalculation counter.
func RecordRecalculationFailure() {
	if globalManager.enabled {
		globalManager.recalculationFailures.Inc()
	}
}

// RecordOverride increments the applied-override counter.
func RecordOverride() {
	if globalManager.enabled {
		globalManager.overridesTotal.Inc()
	}
}

// RecordOverrideRejection increments the rejected-override counter.
func RecordOverrideRejection() {
	if globalManager.enabled {
		globalManager.overrideRejections.Inc()
	}
}

// RecordSnapshotAppended increments the snapshot counter.
func RecordSnapshotAppended() {
	if globalManager.enabled {
		globalManager.snapshotsAppended.Inc()
	}
}

// RecordTierTransition increments the tier-change counter.
func RecordTierTransition() {
	if globalManager.enabled {
		globalManager.tierTransitions.Inc()
	}
}

// RecordStoreSaveLatency observes a save latency in milliseconds.
func RecordStoreSaveLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeSaveLatency.Observe(ms)
	}
}

// RecordStoreQueryLatency observes a read latency in milliseconds.
func RecordStoreQueryLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.Observe(ms)
	}
}

// RecordSaveConflict increments the optimistic-concurrency conflict counter.
func RecordSaveConflict() {
	if globalManager.enabled {
		globalManager.saveConflicts.Inc()
	}
}

// UpdateRecordsTotal sets the stored-record gauge.
func UpdateRecordsTotal(n int) {
	if globalManager.enabled {
		globalManager.recordsTotal.Set(float64(n))
	}
}

// UpdateEligibleRecords sets the eligible-record gauge.
func UpdateEligibleRecords(n int) {
	if globalManager.enabled {
		globalManager.eligibleRecords.Set(float64(n))
	}
}

// UpdateTierDistribution sets the per-tier record gauge.
func UpdateTierDistribution(tier string, n int) {
	if globalManager.enabled {
		globalManager.tierDistribution.WithLabelValues(tier).Set(float64(n))
	}
}

// RecordErrorByComponent increments the error counter for a component/kind pair.
func RecordErrorByComponent(component, kind string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap-allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(n))
	}
}
