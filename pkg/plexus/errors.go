package plexus

import (
	"context"
	"errors"
	"strings"

	"github.com/dan-solli/goplexus/pkg/adapter"
	"github.com/dan-solli/goplexus/pkg/engine"
)

// Error type constants for classification
const (
	ErrTypeTimeout    = "timeout"
	ErrTypeNotFound   = "not_found"
	ErrTypeAdapter    = "adapter"
	ErrTypeDatabase   = "database"
	ErrTypeValidation = "validation"
	ErrTypeUnknown    = "unknown"
)

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and logs.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTypeTimeout
	}
	if errors.Is(err, engine.ErrContextNotFound) {
		return ErrTypeNotFound
	}
	if errors.Is(err, adapter.ErrAdapterInput) || errors.Is(err, adapter.ErrNoAdapter) {
		return ErrTypeAdapter
	}
	if errors.Is(err, adapter.ErrNilEmission) || errors.Is(err, adapter.ErrEmptySourceID) {
		return ErrTypeValidation
	}

	errStrLower := strings.ToLower(err.Error())
	if strings.Contains(errStrLower, "timeout") || strings.Contains(errStrLower, "deadline exceeded") {
		return ErrTypeTimeout
	}
	if strings.Contains(errStrLower, "sql") ||
		strings.Contains(errStrLower, "database") ||
		strings.Contains(errStrLower, "badger") ||
		strings.Contains(errStrLower, "constraint") {
		return ErrTypeDatabase
	}
	if strings.Contains(errStrLower, "invalid") ||
		strings.Contains(errStrLower, "must not be") ||
		strings.Contains(errStrLower, "required") {
		return ErrTypeValidation
	}

	return ErrTypeUnknown
}
