package adapter

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dan-solli/goplexus/pkg/engine"
	"github.com/dan-solli/goplexus/pkg/graph"
	"github.com/dan-solli/goplexus/pkg/store"
)

// captureHandler is a slog.Handler that captures log records for test assertions
type captureHandler struct {
	records []slog.Record
	mu      sync.Mutex
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{records: make([]slog.Record, 0)}
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(_ string) slog.Handler      { return h }

func (h *captureHandler) getRecords() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]slog.Record, len(h.records))
	copy(result, h.records)
	return result
}

// funcEnrichment adapts a function to the Enrichment interface for tests.
type funcEnrichment struct {
	id    string
	fn    func(events []GraphEvent, snapshot *graph.Context) *Emission
	calls int
}

func (f *funcEnrichment) ID() string { return f.id }

func (f *funcEnrichment) Enrich(events []GraphEvent, snapshot *graph.Context) *Emission {
	f.calls++
	return f.fn(events, snapshot)
}

func loopFixture(t *testing.T) (*engine.Engine, func() (*graph.Context, error), SinkFactory) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	e := engine.New(s, nil)
	if _, err := e.CreateContextWithID(context.Background(), "c1", "test"); err != nil {
		t.Fatalf("create context failed: %v", err)
	}
	snapshot := func() (*graph.Context, error) { return e.GetContext("c1") }
	sinks := func(sourceID string) Sink { return NewEngineSink(e, "c1", sourceID, nil, nil) }
	return e, snapshot, sinks
}

func TestRegistryDeduplicatesByID(t *testing.T) {
	r := NewRegistry(0, nil)
	r.Register(&funcEnrichment{id: "co_occurrence", fn: func([]GraphEvent, *graph.Context) *Emission { return nil }})
	r.Register(&funcEnrichment{id: "co_occurrence", fn: func([]GraphEvent, *graph.Context) *Emission { return nil }})
	r.Register(&funcEnrichment{id: "other", fn: func([]GraphEvent, *graph.Context) *Emission { return nil }})

	if got := len(r.Enrichments()); got != 2 {
		t.Errorf("registry size: got %d, want 2", got)
	}
}

func TestLoopQuiescentWhenNothingDerived(t *testing.T) {
	_, snapshot, sinks := loopFixture(t)
	r := NewRegistry(0, nil)
	unit := &funcEnrichment{id: "idle", fn: func([]GraphEvent, *graph.Context) *Emission { return nil }}
	r.Register(unit)

	events, rounds, err := r.Run(context.Background(), nil, snapshot, sinks)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rounds != 0 || len(events) != 0 {
		t.Errorf("expected immediate quiescence, got rounds=%d events=%d", rounds, len(events))
	}
	if unit.calls != 1 {
		t.Errorf("unit invoked %d times, want 1", unit.calls)
	}
}

func TestLoopRunsUntilGuardSatisfied(t *testing.T) {
	e, snapshot, sinks := loopFixture(t)
	ctx := context.Background()

	// Seed nodes so the derived edge validates.
	seedSink := NewEngineSink(e, "c1", "seeder", nil, nil)
	if _, err := seedSink.Emit(ctx, NewEmission().
		AddNode(conceptNode("A")).
		AddNode(conceptNode("B"))); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	// Derives A->B once, then sees it in the snapshot and goes quiet.
	unit := &funcEnrichment{id: "deriver", fn: func(_ []GraphEvent, snap *graph.Context) *Emission {
		if snap.HasEdge("A", "B", "may_be_related") {
			return nil
		}
		return NewEmission().AddEdge(graph.NewEdge("A", "B", "may_be_related"), 1.0)
	}}
	r := NewRegistry(0, nil)
	r.Register(unit)

	events, rounds, err := r.Run(ctx, seedSink.Events(), snapshot, sinks)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rounds != 1 {
		t.Errorf("rounds: got %d, want 1", rounds)
	}
	if len(EventsOfKind(events, EventEdgesAdded)) != 1 {
		t.Errorf("derived edge events: %v", events)
	}

	gc, _ := e.GetContext("c1")
	if !gc.HasEdge("A", "B", "may_be_related") {
		t.Fatal("derived edge missing")
	}
	if got := gc.FindEdge("A", "B", "may_be_related").Contributions["deriver"]; got != 1.0 {
		t.Errorf("enrichment contribution slot: got %v", got)
	}

	// Running again on the satisfied graph derives nothing.
	events, rounds, err = r.Run(ctx, nil, snapshot, sinks)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if rounds != 0 || len(events) != 0 {
		t.Errorf("satisfied graph should be quiescent, got rounds=%d events=%d", rounds, len(events))
	}
	gc, _ = e.GetContext("c1")
	if gc.EdgeCount() != 1 {
		t.Errorf("duplicate edge created across runs: %d edges", gc.EdgeCount())
	}
}

func TestLoopRoundCapWithWarning(t *testing.T) {
	e, snapshot, sinks := loopFixture(t)
	ctx := context.Background()

	seedSink := NewEngineSink(e, "c1", "seeder", nil, nil)
	if _, err := seedSink.Emit(ctx, NewEmission().AddNode(conceptNode("hub"))); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	// Pathological unit: proposes new work every round, never converges.
	n := 0
	unit := &funcEnrichment{id: "runaway", fn: func([]GraphEvent, *graph.Context) *Emission {
		n++
		node := conceptNode(graph.NewID())
		return NewEmission().
			AddNode(node).
			AddEdge(graph.NewEdge("hub", node.ID, "spawned"), 1.0)
	}}

	handler := newCaptureHandler()
	r := NewRegistry(3, slog.New(handler))
	r.Register(unit)

	_, rounds, err := r.Run(ctx, nil, snapshot, sinks)
	if err != nil {
		t.Fatalf("Run must not fail on cap: %v", err)
	}
	if rounds != 3 {
		t.Errorf("rounds: got %d, want cap 3", rounds)
	}
	if unit.calls != 3 {
		t.Errorf("unit invocations: got %d, want 3", unit.calls)
	}

	warned := false
	for _, rec := range handler.getRecords() {
		if rec.Level == slog.LevelWarn && strings.Contains(rec.Message, "round cap") {
			warned = true
		}
	}
	if !warned {
		t.Error("round cap did not log a warning")
	}
}

func TestLoopRoundWindowsAreNotCumulative(t *testing.T) {
	e, snapshot, sinks := loopFixture(t)
	ctx := context.Background()

	seedSink := NewEngineSink(e, "c1", "seeder", nil, nil)
	if _, err := seedSink.Emit(ctx, NewEmission().
		AddNode(conceptNode("A")).
		AddNode(conceptNode("B")).
		AddNode(conceptNode("C"))); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	seed := seedSink.Events()

	var windows [][]GraphEvent
	unit := &funcEnrichment{id: "observer", fn: func(events []GraphEvent, snap *graph.Context) *Emission {
		windows = append(windows, events)
		if snap.HasEdge("A", "B", "derived") {
			return nil
		}
		return NewEmission().AddEdge(graph.NewEdge("A", "B", "derived"), 1.0)
	}}
	r := NewRegistry(0, nil)
	r.Register(unit)

	if _, _, err := r.Run(ctx, seed, snapshot, sinks); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(windows) != 2 {
		t.Fatalf("unit saw %d windows, want 2", len(windows))
	}
	// Round 0 sees the seed events; round 1 sees only round 0's output.
	if len(windows[0]) != len(seed) {
		t.Errorf("round 0 window: got %d events, want %d", len(windows[0]), len(seed))
	}
	for _, ev := range windows[1] {
		if ev.Kind == EventNodesAdded && ev.AdapterID == "seeder" {
			t.Error("round 1 window still contains seed events")
		}
	}
}

func TestLoopCancellationBetweenEmissions(t *testing.T) {
	e, snapshot, sinks := loopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	seedSink := NewEngineSink(e, "c1", "seeder", nil, nil)
	if _, err := seedSink.Emit(context.Background(), NewEmission().AddNode(conceptNode("hub"))); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	unit := &funcEnrichment{id: "runaway", fn: func([]GraphEvent, *graph.Context) *Emission {
		cancel() // takes effect at the next emission boundary
		node := conceptNode(graph.NewID())
		return NewEmission().
			AddNode(node).
			AddEdge(graph.NewEdge("hub", node.ID, "spawned"), 1.0)
	}}
	r := NewRegistry(0, nil)
	r.Register(unit)

	_, _, err := r.Run(ctx, nil, snapshot, sinks)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	// The in-flight emission before cancellation completed atomically.
	gc, _ := e.GetContext("c1")
	if gc.EdgeCount() != 1 {
		t.Errorf("first round's emission should have committed: %d edges", gc.EdgeCount())
	}
}
