package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dan-solli/goplexus/pkg/engine"
	"github.com/dan-solli/goplexus/pkg/graph"
	"github.com/dan-solli/goplexus/pkg/metrics"
	"github.com/dan-solli/goplexus/pkg/trace"
)

// ErrNoAdapter indicates an ingest call for an input kind no registered
// adapter handles.
var ErrNoAdapter = errors.New("no adapter registered for input kind")

// ErrAdapterInput is the typed error adapters return when the payload does
// not match their expected shape. The pipeline logs it and continues with
// the other adapters.
var ErrAdapterInput = errors.New("adapter input mismatch")

// ProvenanceSourceID is the contribution slot the pipeline's own
// auto-provenance edges are written under.
const ProvenanceSourceID = "plexus.provenance"

// Adapter translates between a domain and the graph, in both directions.
// Process turns external input into emissions through the given sink;
// TransformEvents turns the cycle's committed graph events back into
// domain-meaningful notifications.
type Adapter interface {
	ID() string
	InputKind() string
	Process(ctx context.Context, input interface{}, sink Sink) error
	TransformEvents(events []GraphEvent, snapshot *graph.Context) []OutboundEvent
}

// IngestResult reports one full ingest cycle: the ordered event history of
// the primary commits plus every enrichment round, per-adapter failures,
// and the adapters' outbound translations.
type IngestResult struct {
	Events        []GraphEvent
	Outbound      []OutboundEvent
	Rounds        int
	AdapterErrors map[string]error
}

// RetractResult reports an administrative retraction and the enrichment
// re-evaluation it triggered.
type RetractResult struct {
	Affected      int
	PrunedEdgeIDs []string
	Events        []GraphEvent
	Rounds        int
}

// IngestPipeline routes external input to adapters, commits their emissions
// through per-adapter sinks, records provenance, and drives the enrichment
// loop to quiescence.
type IngestPipeline struct {
	engine   *engine.Engine
	registry *Registry
	adapters map[string][]Adapter
	byID     map[string]Adapter
	logger   *slog.Logger
	metrics  metrics.Collector
	tracer   trace.Exporter

	// recordProvenance controls auto-provenance ingest records. On by
	// default; tests and bulk loads can switch it off.
	recordProvenance bool
}

// NewIngestPipeline creates a pipeline over the given engine and
// enrichment registry.
func NewIngestPipeline(e *engine.Engine, registry *Registry, logger *slog.Logger, m metrics.Collector) *IngestPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoopCollector()
	}
	if registry == nil {
		registry = NewRegistry(DefaultMaxRounds, logger)
	}
	return &IngestPipeline{
		engine:           e,
		registry:         registry,
		adapters:         make(map[string][]Adapter),
		byID:             make(map[string]Adapter),
		logger:           logger,
		metrics:          m,
		tracer:           trace.NewNoopExporter(),
		recordProvenance: true,
	}
}

// SetProvenanceRecording toggles auto-provenance ingest records.
func (p *IngestPipeline) SetProvenanceRecording(on bool) {
	p.recordProvenance = on
}

// SetTraceExporter replaces the trace destination. Passing nil restores
// the no-op exporter.
func (p *IngestPipeline) SetTraceExporter(exporter trace.Exporter) {
	if exporter == nil {
		exporter = trace.NewNoopExporter()
	}
	p.tracer = exporter
}

// RegisterAdapter registers an adapter under its input kind. Registering
// the same adapter ID twice is a no-op.
func (p *IngestPipeline) RegisterAdapter(a Adapter) {
	if _, ok := p.byID[a.ID()]; ok {
		return
	}
	p.byID[a.ID()] = a
	p.adapters[a.InputKind()] = append(p.adapters[a.InputKind()], a)
}

// RegisterIntegration registers an adapter together with the enrichments
// that belong to it. Enrichments are deduplicated by ID across
// integrations.
func (p *IngestPipeline) RegisterIntegration(a Adapter, enrichments ...Enrichment) {
	p.RegisterAdapter(a)
	for _, e := range enrichments {
		p.registry.Register(e)
	}
}

// Registry returns the pipeline's enrichment registry.
func (p *IngestPipeline) Registry() *Registry { return p.registry }

// Ingest runs one full cycle: route the payload to every adapter handling
// inputKind, commit their emissions, write provenance records, drive the
// enrichment loop to quiescence, then ask each contributing adapter to
// translate the cycle's events for its consumers.
//
// One adapter failing isolates to that adapter: its error is logged,
// collected in the result, and the cycle proceeds.
func (p *IngestPipeline) Ingest(ctx context.Context, contextID, inputKind string, payload interface{}) (*IngestResult, error) {
	start := time.Now()
	if !p.engine.HasContext(contextID) {
		return nil, fmt.Errorf("%w: %s", engine.ErrContextNotFound, contextID)
	}
	routed := p.adapters[inputKind]
	if len(routed) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, inputKind)
	}

	result := &IngestResult{AdapterErrors: make(map[string]error)}
	contributed := make([]Adapter, 0, len(routed))
	var spans []trace.SpanRecord

	for _, a := range routed {
		stageStart := time.Now()
		sink := NewEngineSink(p.engine, contextID, a.ID(), p.logger, p.metrics)
		if err := a.Process(ctx, payload, sink); err != nil {
			p.logger.Error("adapter failed, continuing with others",
				"adapter_id", a.ID(),
				"input_kind", inputKind,
				"error", err)
			p.metrics.RecordError(ctx, "ingest", "adapter_failure")
			result.AdapterErrors[a.ID()] = err
			spans = append(spans, trace.SpanRecord{
				Name:       "adapter:" + a.ID(),
				DurationMs: time.Since(stageStart).Milliseconds(),
				OK:         false,
				ErrorType:  "adapter_failure",
			})
			continue
		}
		events := sink.Events()
		if len(events) > 0 {
			contributed = append(contributed, a)
			result.Events = append(result.Events, events...)
		}
		p.metrics.RecordStage(ctx, "ingest", "adapter", time.Since(stageStart).Milliseconds())
		spans = append(spans, trace.SpanRecord{
			Name:       "adapter:" + a.ID(),
			DurationMs: time.Since(stageStart).Milliseconds(),
			OK:         true,
			Counters:   eventCounters(events),
		})
		if p.recordProvenance {
			provEvents, err := p.recordIngest(ctx, contextID, a.ID(), inputKind, events)
			if err != nil {
				return nil, err
			}
			result.Events = append(result.Events, provEvents...)
		}
	}

	enrichStart := time.Now()
	enrichEvents, rounds, err := p.runEnrichments(ctx, contextID, result.Events)
	if err != nil {
		return nil, err
	}
	result.Events = append(result.Events, enrichEvents...)
	result.Rounds = rounds
	p.metrics.RecordStage(ctx, "ingest", "enrichment", time.Since(enrichStart).Milliseconds())
	spans = append(spans, trace.SpanRecord{
		Name:       "enrichment",
		DurationMs: time.Since(enrichStart).Milliseconds(),
		OK:         true,
		Counters:   map[string]int64{"rounds": int64(rounds)},
	})

	if len(contributed) > 0 {
		snap, err := p.engine.GetContext(contextID)
		if err != nil {
			return nil, err
		}
		for _, a := range contributed {
			result.Outbound = append(result.Outbound, a.TransformEvents(result.Events, snap)...)
		}
	}

	p.metrics.ObserveEnrichmentRounds(ctx, rounds)
	p.metrics.RecordOperation(ctx, "ingest", "success", time.Since(start).Milliseconds())
	p.export(ctx, &trace.TraceRecord{
		Timestamp:   start.UTC(),
		OperationID: graph.NewID(),
		Operation:   "ingest",
		ContextID:   contextID,
		DurationMs:  time.Since(start).Milliseconds(),
		Status:      ingestStatus(result),
		Spans:       spans,
	})
	return result, nil
}

func ingestStatus(result *IngestResult) string {
	if len(result.AdapterErrors) > 0 {
		return "partial"
	}
	return "success"
}

// eventCounters summarizes a commit's event history for trace spans.
func eventCounters(events []GraphEvent) map[string]int64 {
	if len(events) == 0 {
		return nil
	}
	counters := make(map[string]int64)
	for _, ev := range events {
		switch ev.Kind {
		case EventNodesAdded:
			counters["nodesAdded"] += int64(len(ev.NodeIDs))
		case EventEdgesAdded:
			counters["edgesAdded"] += int64(len(ev.EdgeIDs))
		case EventNodesRemoved:
			counters["nodesRemoved"] += int64(len(ev.NodeIDs))
		case EventEdgesRemoved:
			counters["edgesRemoved"] += int64(len(ev.EdgeIDs))
		}
	}
	return counters
}

func (p *IngestPipeline) export(ctx context.Context, record *trace.TraceRecord) {
	if err := p.tracer.Export(ctx, record); err != nil {
		p.logger.Warn("failed to export trace record",
			"operation", record.Operation,
			"error", err)
	}
}

// recordIngest commits an ingest record node in the provenance dimension
// plus a produced_by edge from the record to every node the adapter added.
func (p *IngestPipeline) recordIngest(ctx context.Context, contextID, adapterID, inputKind string, events []GraphEvent) ([]GraphEvent, error) {
	var producedNodeIDs []string
	for _, ev := range EventsOfKind(events, EventNodesAdded) {
		producedNodeIDs = append(producedNodeIDs, ev.NodeIDs...)
	}
	if len(producedNodeIDs) == 0 {
		return nil, nil
	}

	record := graph.NewNodeInDimension("ingest_record", graph.ContentProvenance, graph.DimensionProvenance).
		WithSource(adapterID).
		WithProperty("adapter_id", adapterID).
		WithProperty("input_kind", inputKind).
		WithProperty("node_count", len(producedNodeIDs)).
		WithProperty("ingested_at", time.Now().UTC().Format(time.RFC3339))

	emission := NewEmission().AddNode(record)
	for _, nodeID := range producedNodeIDs {
		emission.AddEdge(graph.NewEdge(record.ID, nodeID, "produced_by"), 1.0)
	}

	sink := NewEngineSink(p.engine, contextID, ProvenanceSourceID, p.logger, p.metrics)
	result, err := sink.Emit(ctx, emission)
	if err != nil {
		return nil, fmt.Errorf("failed to record provenance: %w", err)
	}
	return result.Events, nil
}

// Retract removes a source's entire influence from a context. This is an
// administrative operation: it bypasses the adapter-facing ingest path,
// fires retraction and removal events, then runs the enrichment loop so
// derived structure can re-evaluate its own guard conditions.
func (p *IngestPipeline) Retract(ctx context.Context, contextID, sourceID string) (*RetractResult, error) {
	start := time.Now()
	result := &RetractResult{}

	err := p.engine.WithContextMut(ctx, contextID, func(gc *graph.Context) error {
		affected, pruned := gc.RetractContributions(sourceID)
		result.Affected = affected
		result.PrunedEdgeIDs = pruned
		if affected == 0 {
			// Vacuously successful, nothing to persist.
			return errNothingCommitted
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNothingCommitted) {
		p.metrics.RecordError(ctx, "retract", "commit_failed")
		return nil, fmt.Errorf("failed to retract %s: %w", sourceID, err)
	}
	if result.Affected == 0 {
		return result, nil
	}

	result.Events = append(result.Events, GraphEvent{
		Kind:      EventContributionsRetracted,
		ContextID: contextID,
		AdapterID: sourceID,
		Affected:  result.Affected,
	})
	if len(result.PrunedEdgeIDs) > 0 {
		result.Events = append(result.Events, GraphEvent{
			Kind:      EventEdgesRemoved,
			ContextID: contextID,
			AdapterID: sourceID,
			EdgeIDs:   result.PrunedEdgeIDs,
			Reason:    RemovalReasonRetraction,
		})
	}

	enrichStart := time.Now()
	enrichEvents, rounds, err := p.runEnrichments(ctx, contextID, result.Events)
	if err != nil {
		return nil, err
	}
	result.Events = append(result.Events, enrichEvents...)
	result.Rounds = rounds

	p.export(ctx, &trace.TraceRecord{
		Timestamp:   start.UTC(),
		OperationID: graph.NewID(),
		Operation:   "retract",
		ContextID:   contextID,
		DurationMs:  time.Since(start).Milliseconds(),
		Status:      "success",
		Spans: []trace.SpanRecord{
			{
				Name:       "retract",
				DurationMs: enrichStart.Sub(start).Milliseconds(),
				OK:         true,
				Counters: map[string]int64{
					"affected": int64(result.Affected),
					"pruned":   int64(len(result.PrunedEdgeIDs)),
				},
			},
			{
				Name:       "enrichment",
				DurationMs: time.Since(enrichStart).Milliseconds(),
				OK:         true,
				Counters:   map[string]int64{"rounds": int64(rounds)},
			},
		},
	})

	p.logger.Info("contributions retracted",
		"context_id", contextID,
		"source_id", sourceID,
		"affected", result.Affected,
		"pruned", len(result.PrunedEdgeIDs))
	p.metrics.RecordOperation(ctx, "retract", "success", time.Since(start).Milliseconds())
	return result, nil
}

func (p *IngestPipeline) runEnrichments(ctx context.Context, contextID string, seed []GraphEvent) ([]GraphEvent, int, error) {
	snapshot := func() (*graph.Context, error) {
		return p.engine.GetContext(contextID)
	}
	sinks := func(sourceID string) Sink {
		return NewEngineSink(p.engine, contextID, sourceID, p.logger, p.metrics)
	}
	return p.registry.Run(ctx, seed, snapshot, sinks)
}
