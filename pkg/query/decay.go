package query

import (
	"math"
	"time"

	"github.com/dan-solli/goplexus/pkg/graph"
)

// DefaultHalfLifeDays is used when RecencyDecay is configured with a
// non-positive half-life.
const DefaultHalfLifeDays = 30

// RecencyDecay is a decorator that applies time-based decay to another
// strategy's normalized weights. Older edges lose relative importance with
// an exponential half-life; stored raw weights are never touched. The
// decayed weights are re-normalized to sum to 1 so the result stays a
// distribution.
type RecencyDecay struct {
	underlying   NormalizationStrategy
	halfLifeDays int

	// now is swappable for tests.
	now func() time.Time
}

// NewRecencyDecay wraps a strategy with half-life decay. A non-positive
// halfLifeDays falls back to DefaultHalfLifeDays.
func NewRecencyDecay(underlying NormalizationStrategy, halfLifeDays int) *RecencyDecay {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	return &RecencyDecay{
		underlying:   underlying,
		halfLifeDays: halfLifeDays,
		now:          time.Now,
	}
}

// Name returns the strategy identifier, qualified by the wrapped strategy.
func (d *RecencyDecay) Name() string {
	return "recency_decay:" + d.underlying.Name()
}

// Normalize runs the underlying strategy, multiplies each weight by
// 0.5^(age/halfLife) measured from the edge's creation time, and
// re-normalizes. Edges with a zero creation timestamp are left undecayed.
func (d *RecencyDecay) Normalize(nodeID string, snapshot *graph.Context) []NormalizedEdge {
	normalized := d.underlying.Normalize(nodeID, snapshot)
	if len(normalized) == 0 {
		return normalized
	}

	now := d.now()
	halfLife := float64(d.halfLifeDays) * 24 * float64(time.Hour)
	total := 0.0
	out := make([]NormalizedEdge, 0, len(normalized))
	for _, ne := range normalized {
		weight := ne.Weight
		if !ne.Edge.CreatedAt.IsZero() {
			age := now.Sub(ne.Edge.CreatedAt)
			if age > 0 {
				weight *= math.Pow(0.5, float64(age)/halfLife)
			}
		}
		total += weight
		out = append(out, NormalizedEdge{Edge: ne.Edge, Weight: weight})
	}
	if total > 0 {
		for i := range out {
			out[i].Weight /= total
		}
	}
	sortByWeight(out)
	return out
}
