package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dan-solli/goplexus/pkg/graph"
)

// MemoryStore implements ContextStore using in-memory maps.
// Useful for testing and ephemeral deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*graph.Context
	closed   bool
}

// NewMemoryStore creates a new in-memory context store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contexts: make(map[string]*graph.Context),
	}
}

// SaveContext stores a deep copy of the context, keyed by its ID.
func (m *MemoryStore) SaveContext(_ context.Context, gc *graph.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.contexts[gc.ID] = gc.Clone()
	return nil
}

// LoadContext returns a deep copy of the stored context, or (nil, nil) if absent.
func (m *MemoryStore) LoadContext(_ context.Context, id string) (*graph.Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	gc, ok := m.contexts[id]
	if !ok {
		return nil, nil
	}
	return gc.Clone(), nil
}

// DeleteContext removes a context by ID.
func (m *MemoryStore) DeleteContext(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.contexts, id)
	return nil
}

// ListContexts returns all stored context IDs in sorted order.
func (m *MemoryStore) ListContexts(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	ids := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close marks the store as closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
