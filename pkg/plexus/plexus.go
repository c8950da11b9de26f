// Package plexus is the main entry point for the goplexus knowledge graph
// engine: multi-context graphs with per-source edge attribution, a
// validating emission sink, and a bounded reactive enrichment loop.
package plexus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dan-solli/goplexus/pkg/adapter"
	"github.com/dan-solli/goplexus/pkg/engine"
	"github.com/dan-solli/goplexus/pkg/graph"
	"github.com/dan-solli/goplexus/pkg/metrics"
	"github.com/dan-solli/goplexus/pkg/store"
	"github.com/dan-solli/goplexus/pkg/trace"
)

// Store backend names accepted by Config.StoreBackend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds configuration for the Plexus engine
type Config struct {
	// Storage backend: "memory", "sqlite", or "badger" (default: "memory")
	StoreBackend string

	// Path for persistent backends: database file for sqlite, directory
	// for badger. Ignored by the memory backend.
	StorePath string

	// Maximum enrichment rounds per ingest cycle (default: 10)
	MaxEnrichmentRounds int

	// Logger for engine operations (default: slog.Default())
	Logger *slog.Logger

	// Metrics collector (default: no-op)
	Metrics metrics.Collector

	// TracePath enables operation tracing to a JSON Lines file. Empty
	// disables tracing.
	TracePath string
}

// Plexus is the main entry point for the graph engine
type Plexus struct {
	config   Config
	store    store.ContextStore
	engine   *engine.Engine
	pipeline *adapter.IngestPipeline
	tracer   trace.Exporter
}

// New creates a new Plexus instance and loads any persisted contexts.
func New(ctx context.Context, cfg Config) (*Plexus, error) {
	// Apply defaults
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendMemory
	}
	if cfg.MaxEnrichmentRounds <= 0 {
		cfg.MaxEnrichmentRounds = adapter.DefaultMaxRounds
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}

	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	eng := engine.New(s, cfg.Logger)
	if err := eng.LoadAll(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load contexts: %w", err)
	}

	registry := adapter.NewRegistry(cfg.MaxEnrichmentRounds, cfg.Logger)
	pipeline := adapter.NewIngestPipeline(eng, registry, cfg.Logger, cfg.Metrics)

	var tracer trace.Exporter
	if cfg.TracePath != "" {
		exp, err := trace.NewFileExporter(cfg.TracePath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open trace exporter: %w", err)
		}
		tracer = exp
		pipeline.SetTraceExporter(exp)
	}

	return &Plexus{
		config:   cfg,
		store:    s,
		engine:   eng,
		pipeline: pipeline,
		tracer:   tracer,
	}, nil
}

func openStore(cfg Config) (store.ContextStore, error) {
	switch cfg.StoreBackend {
	case BackendMemory:
		return store.NewMemoryStore(), nil
	case BackendSQLite:
		path := cfg.StorePath
		if path == "" {
			path = ":memory:"
		}
		s, err := store.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	case BackendBadger:
		s, err := store.NewBadgerStore(store.BadgerOptions{
			Path:     cfg.StorePath,
			InMemory: cfg.StorePath == "",
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// Engine returns the underlying context engine.
func (p *Plexus) Engine() *engine.Engine { return p.engine }

// Pipeline returns the ingest pipeline.
func (p *Plexus) Pipeline() *adapter.IngestPipeline { return p.pipeline }

// CreateContext registers a new graph context.
func (p *Plexus) CreateContext(ctx context.Context, name string) (*graph.Context, error) {
	return p.engine.CreateContext(ctx, name)
}

// GetContext returns a snapshot of a context.
func (p *Plexus) GetContext(id string) (*graph.Context, error) {
	return p.engine.GetContext(id)
}

// RemoveContext deletes a context and its stored state.
func (p *Plexus) RemoveContext(ctx context.Context, id string) error {
	return p.engine.RemoveContext(ctx, id)
}

// RegisterIntegration registers an adapter with its enrichments.
func (p *Plexus) RegisterIntegration(a adapter.Adapter, enrichments ...adapter.Enrichment) {
	p.pipeline.RegisterIntegration(a, enrichments...)
}

// Ingest runs one full ingest cycle against a context.
func (p *Plexus) Ingest(ctx context.Context, contextID, inputKind string, payload interface{}) (*adapter.IngestResult, error) {
	return p.pipeline.Ingest(ctx, contextID, inputKind, payload)
}

// Retract removes a source's entire influence from a context.
func (p *Plexus) Retract(ctx context.Context, contextID, sourceID string) (*adapter.RetractResult, error) {
	return p.pipeline.Retract(ctx, contextID, sourceID)
}

// Close flushes the trace exporter and releases the storage backend.
func (p *Plexus) Close() error {
	if p.tracer != nil {
		if err := p.tracer.Close(); err != nil {
			p.config.Logger.Warn("failed to close trace exporter", "error", err)
		}
	}
	return p.store.Close()
}
