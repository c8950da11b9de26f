// Package engine manages the registry of graph contexts: creation, lookup,
// removal, and serialized mutation with write-through persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dan-solli/goplexus/pkg/graph"
	"github.com/dan-solli/goplexus/pkg/store"
)

// ErrContextNotFound indicates that no context exists for the given ID.
var ErrContextNotFound = errors.New("context not found")

// ErrContextExists indicates a create collision on context ID.
var ErrContextExists = errors.New("context already exists")

// Engine holds the live working copies of all contexts. Each context has a
// dedicated lock so mutations are single-writer per context while different
// contexts mutate concurrently. Every committed mutation is written through
// to the configured store.
type Engine struct {
	mu       sync.RWMutex
	contexts map[string]*contextEntry
	store    store.ContextStore
	logger   *slog.Logger
}

type contextEntry struct {
	mu sync.Mutex
	gc *graph.Context
}

// New creates an engine backed by the given store. A nil logger falls back
// to slog.Default.
func New(s store.ContextStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		contexts: make(map[string]*contextEntry),
		store:    s,
		logger:   logger,
	}
}

// LoadAll populates the registry from the store. Called once at startup.
func (e *Engine) LoadAll(ctx context.Context) error {
	ids, err := e.store.ListContexts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored contexts: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		gc, err := e.store.LoadContext(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load context %s: %w", id, err)
		}
		if gc == nil {
			continue
		}
		e.contexts[id] = &contextEntry{gc: gc}
	}
	e.logger.Info("contexts loaded", "count", len(e.contexts))
	return nil
}

// CreateContext registers a new empty context and persists it.
func (e *Engine) CreateContext(ctx context.Context, name string) (*graph.Context, error) {
	return e.createContext(ctx, graph.NewContext(name))
}

// CreateContextWithID registers a new empty context under a caller-chosen ID.
func (e *Engine) CreateContextWithID(ctx context.Context, id, name string) (*graph.Context, error) {
	return e.createContext(ctx, graph.NewContextWithID(id, name))
}

func (e *Engine) createContext(ctx context.Context, gc *graph.Context) (*graph.Context, error) {
	e.mu.Lock()
	if _, ok := e.contexts[gc.ID]; ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrContextExists, gc.ID)
	}
	e.contexts[gc.ID] = &contextEntry{gc: gc}
	e.mu.Unlock()

	if err := e.store.SaveContext(ctx, gc); err != nil {
		return nil, fmt.Errorf("failed to persist new context: %w", err)
	}
	e.logger.Info("context created", "context_id", gc.ID, "name", gc.Name)
	return gc.Clone(), nil
}

// UpsertContext returns a snapshot of the context with the given ID,
// creating and persisting it first when it does not exist yet. Useful for
// idempotent setup paths.
func (e *Engine) UpsertContext(ctx context.Context, id, name string) (*graph.Context, error) {
	e.mu.RLock()
	_, ok := e.contexts[id]
	e.mu.RUnlock()
	if ok {
		return e.GetContext(id)
	}
	gc, err := e.createContext(ctx, graph.NewContextWithID(id, name))
	if errors.Is(err, ErrContextExists) {
		// Lost a create race, the context is there now.
		return e.GetContext(id)
	}
	return gc, err
}

// GetContext returns a snapshot copy of a context. Mutating the returned
// value has no effect on the engine's working copy.
func (e *Engine) GetContext(id string) (*graph.Context, error) {
	e.mu.RLock()
	entry, ok := e.contexts[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.gc.Clone(), nil
}

// HasContext reports whether a context is registered.
func (e *Engine) HasContext(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.contexts[id]
	return ok
}

// ListContexts returns the IDs of all registered contexts.
func (e *Engine) ListContexts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.contexts))
	for id := range e.contexts {
		ids = append(ids, id)
	}
	return ids
}

// RemoveContext unregisters a context and deletes it from the store.
func (e *Engine) RemoveContext(ctx context.Context, id string) error {
	e.mu.Lock()
	_, ok := e.contexts[id]
	if ok {
		delete(e.contexts, id)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}

	if err := e.store.DeleteContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stored context: %w", err)
	}
	e.logger.Info("context removed", "context_id", id)
	return nil
}

// WithContextMut runs fn against the live working copy of a context under
// its writer lock, then persists the result. If fn returns an error the
// context is not persisted; in-memory changes made by fn before failing are
// the caller's responsibility to avoid.
func (e *Engine) WithContextMut(ctx context.Context, id string, fn func(gc *graph.Context) error) error {
	e.mu.RLock()
	entry, ok := e.contexts[id]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := fn(entry.gc); err != nil {
		return err
	}
	if err := e.store.SaveContext(ctx, entry.gc); err != nil {
		return fmt.Errorf("failed to persist context %s: %w", id, err)
	}
	return nil
}
