package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dan-solli/goplexus/pkg/engine"
	"github.com/dan-solli/goplexus/pkg/graph"
	"github.com/dan-solli/goplexus/pkg/metrics"
)

// errNothingCommitted aborts the engine's write-through when an emission
// turned out to change nothing (empty or fully rejected). It never escapes
// Emit.
var errNothingCommitted = errors.New("nothing committed")

// EngineSink validates and commits emissions against one context, bound to
// one source identity. In engine mode every commit runs under the context's
// writer lock and is persisted once per emission. The bare-context mode
// targets a *graph.Context directly with no locking or persistence; it
// exists for enrichments' internal use and for tests.
type EngineSink struct {
	engine    *engine.Engine
	bare      *graph.Context
	contextID string
	sourceID  string
	logger    *slog.Logger
	metrics   metrics.Collector

	// events accumulates every event committed through this sink, in
	// commit order, across emissions. The ingest pipeline reads this as
	// the full cycle history for adapter event translation.
	events []GraphEvent

	// post-commit graph sizes, reported as storage gauges.
	lastNodeCount int64
	lastEdgeCount int64
}

// NewEngineSink creates a sink committing through the engine into the
// context with the given ID, attributed to sourceID.
func NewEngineSink(e *engine.Engine, contextID, sourceID string, logger *slog.Logger, m metrics.Collector) *EngineSink {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoopCollector()
	}
	return &EngineSink{
		engine:    e,
		contextID: contextID,
		sourceID:  sourceID,
		logger:    logger,
		metrics:   m,
	}
}

// NewContextSink creates a sink committing directly into a bare context.
func NewContextSink(gc *graph.Context, sourceID string) *EngineSink {
	return &EngineSink{
		bare:      gc,
		contextID: gc.ID,
		sourceID:  sourceID,
		logger:    slog.Default(),
		metrics:   metrics.NewNoopCollector(),
	}
}

// SourceID returns the source identity this sink commits under.
func (s *EngineSink) SourceID() string { return s.sourceID }

// Events returns the accumulated events of every emission committed through
// this sink, in commit order.
func (s *EngineSink) Events() []GraphEvent {
	out := make([]GraphEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ResetEvents clears the accumulated event history.
func (s *EngineSink) ResetEvents() { s.events = nil }

// Snapshot returns a consistent read-only copy of the target context.
func (s *EngineSink) Snapshot() (*graph.Context, error) {
	if s.bare != nil {
		return s.bare.Clone(), nil
	}
	return s.engine.GetContext(s.contextID)
}

// Emit validates the emission against current context state, commits the
// valid subset atomically, and reports counts, rejections, and the events
// that fired. Invalid edges are rejected per-item without failing the rest
// of the emission. A hard error means nothing committed at all.
func (s *EngineSink) Emit(ctx context.Context, emission *Emission) (*EmitResult, error) {
	start := time.Now()
	if emission == nil {
		return nil, ErrNilEmission
	}
	if s.sourceID == "" {
		return nil, ErrEmptySourceID
	}

	result := &EmitResult{
		Provenance: ProvenanceEntry{
			Framework: FrameworkContext{AdapterID: s.sourceID, ContextID: s.contextID},
			Timestamp: time.Now().UTC(),
		},
	}
	if emission.IsEmpty() {
		return result, nil
	}

	var err error
	if s.bare != nil {
		s.commit(s.bare, emission, result)
	} else {
		err = s.engine.WithContextMut(ctx, s.contextID, func(gc *graph.Context) error {
			s.commit(gc, emission, result)
			if result.Noop() {
				return errNothingCommitted
			}
			return nil
		})
		if errors.Is(err, errNothingCommitted) {
			err = nil
		}
	}
	if err != nil {
		s.metrics.RecordError(ctx, "emit", "commit_failed")
		return nil, fmt.Errorf("failed to commit emission: %w", err)
	}

	s.events = append(s.events, result.Events...)
	s.metrics.RecordRejections(ctx, "emit", len(result.Rejections))
	s.metrics.RecordOperation(ctx, "emit", "success", time.Since(start).Milliseconds())
	s.metrics.SetStorageCount(ctx, "nodes", s.lastNodeCount)
	s.metrics.SetStorageCount(ctx, "edges", s.lastEdgeCount)
	if len(result.Rejections) > 0 {
		s.logger.Warn("emission items rejected",
			"context_id", s.contextID,
			"source_id", s.sourceID,
			"rejections", len(result.Rejections))
	}
	return result, nil
}

// commit applies one emission to the context in the fixed order nodes,
// edges, removals, then recomputes weights and appends events to result.
func (s *EngineSink) commit(gc *graph.Context, emission *Emission, result *EmitResult) {
	// Raw weights before the commit; a recompute can shift edges this
	// emission never touched when a source's observed range moves.
	oldRaw := make(map[string]float64, len(gc.Edges))
	for _, e := range gc.Edges {
		oldRaw[e.ID] = e.RawWeight
	}

	// Nodes commit first, so an edge may reference any node in this
	// emission regardless of slice position.
	committedNodes := make(map[string]bool)
	var nodeIDs []string
	for _, an := range emission.Nodes {
		if an.Node == nil || an.Node.ID == "" {
			result.Rejections = append(result.Rejections, Rejection{
				Reason:      RejectInvalidItem,
				Description: "node is nil or has empty id",
			})
			continue
		}
		gc.AddNode(an.Node)
		committedNodes[an.Node.ID] = true
		nodeIDs = append(nodeIDs, an.Node.ID)
	}
	result.NodesCommitted = len(nodeIDs)

	var edgeIDs []string
	var changedEdgeIDs []string
	for _, ae := range emission.Edges {
		edge := ae.Edge
		if edge == nil || edge.Source == "" || edge.Target == "" || edge.Relationship == "" {
			result.Rejections = append(result.Rejections, Rejection{
				Reason:      RejectInvalidItem,
				Description: "edge is nil or missing identity fields",
			})
			continue
		}
		if math.IsNaN(ae.Contribution) || math.IsInf(ae.Contribution, 0) {
			result.Rejections = append(result.Rejections, Rejection{
				Reason:      RejectNonFinite,
				Description: fmt.Sprintf("edge %s-[%s]->%s contribution is not finite", edge.Source, edge.Relationship, edge.Target),
			})
			continue
		}
		if !gc.HasNode(edge.Source) && !committedNodes[edge.Source] {
			result.Rejections = append(result.Rejections, Rejection{
				Reason:      RejectMissingEndpoint,
				Description: fmt.Sprintf("edge %s-[%s]->%s: source node not found", edge.Source, edge.Relationship, edge.Target),
			})
			continue
		}
		if !gc.HasNode(edge.Target) && !committedNodes[edge.Target] {
			result.Rejections = append(result.Rejections, Rejection{
				Reason:      RejectMissingEndpoint,
				Description: fmt.Sprintf("edge %s-[%s]->%s: target node not found", edge.Source, edge.Relationship, edge.Target),
			})
			continue
		}

		oldValue, hadSlot := 0.0, false
		if existing := gc.FindEdge(edge.Source, edge.Target, edge.Relationship); existing != nil {
			oldValue, hadSlot = existing.Contributions[s.sourceID]
		}

		incoming := edge.Clone()
		incoming.Contributions = map[string]float64{s.sourceID: ae.Contribution}
		gc.AddEdge(incoming)

		committed := gc.FindEdge(edge.Source, edge.Target, edge.Relationship)
		edgeIDs = append(edgeIDs, committed.ID)
		if !hadSlot || oldValue != ae.Contribution {
			changedEdgeIDs = append(changedEdgeIDs, committed.ID)
		}
	}
	result.EdgesCommitted = len(edgeIDs)

	var removedNodeIDs, cascadedEdgeIDs []string
	for _, id := range emission.Removals {
		removed, cascaded := gc.RemoveNode(id)
		if !removed {
			continue // removing a missing node is a no-op
		}
		removedNodeIDs = append(removedNodeIDs, id)
		cascadedEdgeIDs = append(cascadedEdgeIDs, cascaded...)
	}
	result.RemovalsCommitted = len(removedNodeIDs)

	if len(changedEdgeIDs) > 0 || len(cascadedEdgeIDs) > 0 {
		gc.RecomputeRawWeights()

		// WeightsChanged reports every edge whose raw weight actually
		// moved, slot-touched or not.
		touched := make(map[string]bool, len(changedEdgeIDs))
		for _, id := range changedEdgeIDs {
			touched[id] = true
		}
		for _, e := range gc.Edges {
			if touched[e.ID] {
				continue
			}
			if old, ok := oldRaw[e.ID]; ok && old != e.RawWeight {
				changedEdgeIDs = append(changedEdgeIDs, e.ID)
			}
		}
	}

	// Event order is fixed: additions, removals, weight changes.
	if len(nodeIDs) > 0 {
		result.Events = append(result.Events, GraphEvent{
			Kind: EventNodesAdded, ContextID: gc.ID, AdapterID: s.sourceID, NodeIDs: nodeIDs,
		})
	}
	if len(edgeIDs) > 0 {
		result.Events = append(result.Events, GraphEvent{
			Kind: EventEdgesAdded, ContextID: gc.ID, AdapterID: s.sourceID, EdgeIDs: edgeIDs,
		})
	}
	if len(removedNodeIDs) > 0 {
		result.Events = append(result.Events, GraphEvent{
			Kind: EventNodesRemoved, ContextID: gc.ID, AdapterID: s.sourceID, NodeIDs: removedNodeIDs,
		})
	}
	if len(cascadedEdgeIDs) > 0 {
		result.Events = append(result.Events, GraphEvent{
			Kind: EventEdgesRemoved, ContextID: gc.ID, AdapterID: s.sourceID,
			EdgeIDs: cascadedEdgeIDs, Reason: RemovalReasonCascade,
		})
	}
	if len(changedEdgeIDs) > 0 {
		result.Events = append(result.Events, GraphEvent{
			Kind: EventWeightsChanged, ContextID: gc.ID, AdapterID: s.sourceID, EdgeIDs: changedEdgeIDs,
		})
	}

	s.lastNodeCount = int64(gc.NodeCount())
	s.lastEdgeCount = int64(gc.EdgeCount())
}
