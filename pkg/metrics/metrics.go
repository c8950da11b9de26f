package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector provides Prometheus metrics collection for goplexus operations
type MetricsCollector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	enrichmentRounds  prometheus.Histogram
	storageCount      *prometheus.GaugeVec
	registry          *prometheus.Registry
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goplexus_operations_total",
			Help: "Total number of goplexus operations by type and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goplexus_operation_duration_seconds",
			Help:    "Duration of goplexus operations by type and stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"operation", "stage"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goplexus_errors_total",
			Help: "Total number of errors by operation and error type",
		},
		[]string{"operation", "error_type"},
	)

	rejectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goplexus_emission_rejections_total",
			Help: "Total number of per-item emission rejections by operation",
		},
		[]string{"operation"},
	)

	enrichmentRounds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "goplexus_enrichment_rounds",
			Help:    "Number of enrichment rounds run per ingest cycle",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	storageCount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "goplexus_storage_count",
			Help: "Current count of stored items by type",
		},
		[]string{"type"},
	)

	registry.MustRegister(operationsTotal)
	registry.MustRegister(operationDuration)
	registry.MustRegister(errorsTotal)
	registry.MustRegister(rejectionsTotal)
	registry.MustRegister(enrichmentRounds)
	registry.MustRegister(storageCount)

	return &MetricsCollector{
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		errorsTotal:       errorsTotal,
		rejectionsTotal:   rejectionsTotal,
		enrichmentRounds:  enrichmentRounds,
		storageCount:      storageCount,
		registry:          registry,
	}
}

// RecordOperation records the completion of an operation
func (m *MetricsCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordStage records the duration of a specific stage within an operation
func (m *MetricsCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
	m.operationDuration.WithLabelValues(operation, stage).Observe(float64(durationMs) / 1000.0)
}

// RecordError records an error occurrence
func (m *MetricsCollector) RecordError(ctx context.Context, operation string, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordRejections records per-item validation rejections from a commit
func (m *MetricsCollector) RecordRejections(ctx context.Context, operation string, count int) {
	if count > 0 {
		m.rejectionsTotal.WithLabelValues(operation).Add(float64(count))
	}
}

// ObserveEnrichmentRounds records how many rounds an enrichment cycle took
func (m *MetricsCollector) ObserveEnrichmentRounds(ctx context.Context, rounds int) {
	m.enrichmentRounds.Observe(float64(rounds))
}

// SetStorageCount sets the current count for a storage type
func (m *MetricsCollector) SetStorageCount(ctx context.Context, storageType string, count int64) {
	m.storageCount.WithLabelValues(storageType).Set(float64(count))
}

// Registry returns the Prometheus registry for HTTP exposure
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}
