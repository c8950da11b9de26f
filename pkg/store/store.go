// Package store provides persistence backends for goplexus graph contexts.
package store

import (
	"context"
	"errors"

	"github.com/dan-solli/goplexus/pkg/graph"
)

// ContextStore defines the interface for context persistence.
// A context is saved and loaded as a unit: the engine owns the in-memory
// working copy and writes it back after each committed mutation.
type ContextStore interface {
	// SaveContext persists the full state of a context.
	// Uses upsert semantics (replace by context ID).
	SaveContext(ctx context.Context, gc *graph.Context) error

	// LoadContext retrieves a context by its ID.
	// Returns (nil, nil) if the context is not found (no error).
	LoadContext(ctx context.Context, id string) (*graph.Context, error)

	// DeleteContext removes a context. Deleting a missing context is not an error.
	DeleteContext(ctx context.Context, id string) error

	// ListContexts returns the IDs of all stored contexts.
	ListContexts(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store (e.g., database connections).
	Close() error
}

// ErrStoreClosed indicates an operation on a store after Close.
var ErrStoreClosed = errors.New("store is closed")
