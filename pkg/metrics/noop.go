package metrics

import "context"

// NoopCollector is a no-op implementation for tests and deployments
// that do not scrape metrics.
type NoopCollector struct{}

// NewNoopCollector creates a no-op collector
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

// RecordOperation does nothing
func (n *NoopCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
}

// RecordStage does nothing
func (n *NoopCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
}

// RecordError does nothing
func (n *NoopCollector) RecordError(ctx context.Context, operation string, errorType string) {
}

// RecordRejections does nothing
func (n *NoopCollector) RecordRejections(ctx context.Context, operation string, count int) {
}

// ObserveEnrichmentRounds does nothing
func (n *NoopCollector) ObserveEnrichmentRounds(ctx context.Context, rounds int) {
}

// SetStorageCount does nothing
func (n *NoopCollector) SetStorageCount(ctx context.Context, storageType string, count int64) {
}
