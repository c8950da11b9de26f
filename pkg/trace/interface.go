// Package trace provides sanitized operation tracing for goplexus: one
// record per ingest cycle, emission commit, or retraction, with per-stage
// spans and counters but no graph content.
package trace

import (
	"context"
	"time"
)

// Exporter defines the interface for exporting operation traces.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes a trace record to the configured destination.
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes any buffered records and releases resources.
	Close() error
}

// TraceRecord represents a sanitized operation trace ready for export.
// It carries identifiers and counts only, never node properties or other
// graph content.
type TraceRecord struct {
	// Timestamp is the operation start time
	Timestamp time.Time `json:"timestamp"`

	// OperationID uniquely identifies this operation (for correlation)
	OperationID string `json:"operationId"`

	// Operation is the operation type: "ingest", "emit", "retract"
	Operation string `json:"operation"`

	// ContextID is the graph context the operation targeted
	ContextID string `json:"contextId,omitempty"`

	// DurationMs is the total operation duration in milliseconds
	DurationMs int64 `json:"durationMs"`

	// Status is "success", "partial", or "error"
	Status string `json:"status"`

	// Spans contains per-stage timing and status
	Spans []SpanRecord `json:"spans,omitempty"`

	// ErrorType classifies the error (if Status == "error")
	ErrorType string `json:"errorType,omitempty"`
}

// SpanRecord represents a single stage within an operation.
type SpanRecord struct {
	// Name is the stage name ("adapter:<id>", "provenance", "enrichment")
	Name string `json:"name"`

	// DurationMs is the stage duration in milliseconds
	DurationMs int64 `json:"durationMs"`

	// OK indicates success (true) or failure (false)
	OK bool `json:"ok"`

	// ErrorType classifies the error (if OK == false)
	ErrorType string `json:"errorType,omitempty"`

	// Counters provides stage-specific metrics (e.g., nodesCommitted,
	// rejections, rounds)
	Counters map[string]int64 `json:"counters,omitempty"`
}

// FileExporterOption configures a FileExporter.
type FileExporterOption func(*FileExporter)
