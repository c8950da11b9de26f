package metrics

import "context"

// Collector is the interface for metrics collection.
// Implementations include the Prometheus-backed collector and the no-op
// collector used in tests and metric-less deployments.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)
	RecordError(ctx context.Context, operation string, errorType string)
	RecordRejections(ctx context.Context, operation string, count int)
	ObserveEnrichmentRounds(ctx context.Context, rounds int)
	SetStorageCount(ctx context.Context, storageType string, count int64)
}
