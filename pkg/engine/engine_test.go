package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dan-solli/goplexus/pkg/graph"
	"github.com/dan-solli/goplexus/pkg/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return New(s, nil), s
}

func TestCreateAndGetContext(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := e.CreateContextWithID(ctx, "c1", "first")
	if err != nil {
		t.Fatalf("CreateContextWithID failed: %v", err)
	}
	if created.ID != "c1" || created.Name != "first" {
		t.Errorf("created context wrong: %+v", created)
	}

	got, err := e.GetContext("c1")
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	if got.Name != "first" {
		t.Errorf("got name %q, want first", got.Name)
	}
}

func TestUpsertContextIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.UpsertContext(ctx, "c1", "first")
	if err != nil {
		t.Fatalf("UpsertContext failed: %v", err)
	}
	if first.Name != "first" {
		t.Errorf("created name %q, want first", first.Name)
	}

	// Second upsert returns the existing context, name unchanged.
	again, err := e.UpsertContext(ctx, "c1", "renamed")
	if err != nil {
		t.Fatalf("second UpsertContext failed: %v", err)
	}
	if again.Name != "first" {
		t.Errorf("existing context renamed to %q", again.Name)
	}
	if len(e.ListContexts()) != 1 {
		t.Errorf("contexts: got %d, want 1", len(e.ListContexts()))
	}
}

func TestCreateDuplicateContextFails(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContextWithID(ctx, "c1", "first"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := e.CreateContextWithID(ctx, "c1", "again")
	if !errors.Is(err, ErrContextExists) {
		t.Errorf("expected ErrContextExists, got %v", err)
	}
}

func TestGetContextReturnsSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContextWithID(ctx, "c1", "first"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	snap, _ := e.GetContext("c1")
	snap.AddNode(graph.NewNode("concept", graph.ContentConcept).WithID("sneaky"))

	fresh, _ := e.GetContext("c1")
	if fresh.NodeCount() != 0 {
		t.Error("mutating a snapshot leaked into the working copy")
	}
}

func TestWithContextMutPersists(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContextWithID(ctx, "c1", "first"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := e.WithContextMut(ctx, "c1", func(gc *graph.Context) error {
		gc.AddNode(graph.NewNode("concept", graph.ContentConcept).WithID("n1"))
		return nil
	})
	if err != nil {
		t.Fatalf("WithContextMut failed: %v", err)
	}

	stored, err := s.LoadContext(ctx, "c1")
	if err != nil {
		t.Fatalf("LoadContext failed: %v", err)
	}
	if stored.NodeCount() != 1 {
		t.Errorf("mutation not persisted: got %d nodes", stored.NodeCount())
	}
}

func TestWithContextMutErrorSkipsPersist(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContextWithID(ctx, "c1", "first"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	boom := errors.New("boom")
	err := e.WithContextMut(ctx, "c1", func(gc *graph.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	stored, _ := s.LoadContext(ctx, "c1")
	if stored.NodeCount() != 0 {
		t.Error("failed mutation was persisted")
	}
}

func TestWithContextMutUnknownContext(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.WithContextMut(context.Background(), "missing", func(gc *graph.Context) error {
		return nil
	})
	if !errors.Is(err, ErrContextNotFound) {
		t.Errorf("expected ErrContextNotFound, got %v", err)
	}
}

func TestRemoveContext(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContextWithID(ctx, "c1", "first"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := e.RemoveContext(ctx, "c1"); err != nil {
		t.Fatalf("RemoveContext failed: %v", err)
	}
	if e.HasContext("c1") {
		t.Error("context still registered after remove")
	}
	stored, _ := s.LoadContext(ctx, "c1")
	if stored != nil {
		t.Error("context survived in store after remove")
	}

	if err := e.RemoveContext(ctx, "c1"); !errors.Is(err, ErrContextNotFound) {
		t.Errorf("expected ErrContextNotFound on double remove, got %v", err)
	}
}

func TestLoadAllRestoresContexts(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	seed := graph.NewContextWithID("c1", "persisted")
	seed.AddNode(graph.NewNode("concept", graph.ContentConcept).WithID("n1"))
	if err := s.SaveContext(ctx, seed); err != nil {
		t.Fatalf("seeding store failed: %v", err)
	}

	e := New(s, nil)
	if err := e.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	got, err := e.GetContext("c1")
	if err != nil {
		t.Fatalf("GetContext after LoadAll failed: %v", err)
	}
	if got.NodeCount() != 1 {
		t.Errorf("restored context incomplete: %d nodes", got.NodeCount())
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContextWithID(ctx, "c1", "first"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := e.WithContextMut(ctx, "c1", func(gc *graph.Context) error {
					id := graph.NewID()
					gc.AddNode(graph.NewNode("concept", graph.ContentConcept).WithID(id))
					return nil
				})
				if err != nil {
					t.Errorf("worker %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	got, _ := e.GetContext("c1")
	if got.NodeCount() != workers*perWorker {
		t.Errorf("lost updates: got %d nodes, want %d", got.NodeCount(), workers*perWorker)
	}
}
