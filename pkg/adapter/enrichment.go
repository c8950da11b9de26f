package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dan-solli/goplexus/pkg/graph"
)

// DefaultMaxRounds caps the enrichment loop. Hitting the cap is a logged
// warning, never an error.
const DefaultMaxRounds = 10

// Enrichment is a graph-reactive derivation unit. Its only inputs are the
// previous round's events and a consistent snapshot of the context; it has
// no notion of external callers or domain input. Returning nil (or an empty
// emission) means it has nothing to derive this round.
//
// Convergence is the enrichment's own responsibility: it must check current
// snapshot state before deriving, because events do not imply novelty
// (upserts fire events too).
type Enrichment interface {
	ID() string
	Enrich(events []GraphEvent, snapshot *graph.Context) *Emission
}

// SinkFactory returns a sink bound to the given source identity. The loop
// uses it so each enrichment's edges land in that enrichment's own
// contribution slot.
type SinkFactory func(sourceID string) Sink

// Registry holds the registered enrichments and runs the bounded
// fixed-point loop over them.
type Registry struct {
	enrichments []Enrichment
	maxRounds   int
	logger      *slog.Logger
}

// NewRegistry creates a registry. maxRounds <= 0 falls back to
// DefaultMaxRounds; a nil logger falls back to slog.Default.
func NewRegistry(maxRounds int, logger *slog.Logger) *Registry {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{maxRounds: maxRounds, logger: logger}
}

// Register adds an enrichment. Registering the same ID twice is a no-op.
func (r *Registry) Register(e Enrichment) {
	for _, existing := range r.enrichments {
		if existing.ID() == e.ID() {
			return
		}
	}
	r.enrichments = append(r.enrichments, e)
}

// Enrichments returns the registered units in registration order.
func (r *Registry) Enrichments() []Enrichment {
	out := make([]Enrichment, len(r.enrichments))
	copy(out, r.enrichments)
	return out
}

// Run drives enrichment rounds until quiescence or the round cap.
//
// Every unit in a round sees the identical snapshot and the identical event
// window; the window for round n+1 is exactly the events committed in round
// n (rounds are not cumulative). Cancellation is honored between emissions,
// never inside one.
//
// Returns all events committed by enrichments across every round, and the
// number of rounds that ran.
func (r *Registry) Run(ctx context.Context, seed []GraphEvent, snapshot func() (*graph.Context, error), sinks SinkFactory) ([]GraphEvent, int, error) {
	if len(r.enrichments) == 0 {
		return nil, 0, nil
	}

	var all []GraphEvent
	window := seed
	for round := 0; ; round++ {
		if round >= r.maxRounds {
			r.logger.Warn("enrichment loop hit round cap before quiescence",
				"max_rounds", r.maxRounds)
			return all, round, nil
		}

		snap, err := snapshot()
		if err != nil {
			return all, round, fmt.Errorf("failed to snapshot context: %w", err)
		}

		var roundEvents []GraphEvent
		produced := false
		for _, e := range r.enrichments {
			if err := ctx.Err(); err != nil {
				return all, round, err
			}
			emission := e.Enrich(window, snap)
			if emission == nil || emission.IsEmpty() {
				continue
			}
			produced = true
			result, err := sinks(e.ID()).Emit(ctx, emission)
			if err != nil {
				return all, round, fmt.Errorf("enrichment %s failed to emit: %w", e.ID(), err)
			}
			roundEvents = append(roundEvents, result.Events...)
		}

		if !produced {
			return all, round, nil
		}
		all = append(all, roundEvents...)
		window = roundEvents
	}
}
