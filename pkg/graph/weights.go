package graph

// FloorAlpha is the floor coefficient for scale normalization. The weakest
// real contribution from any source maps to FloorAlpha/(1+FloorAlpha)
// (about 0.0099), never to exactly zero: a zero mapping would make the
// weakest real evidence indistinguishable from absence of evidence.
const FloorAlpha = 0.01

// SourceRange holds the observed contribution bounds for one source.
type SourceRange struct {
	Min float64
	Max float64
}

// SourceStats is the per-source min/max side-table that backs scale
// normalization. It is owned by a Context, rebuilt inside every
// RecomputeRawWeights call, and versioned so callers can detect staleness.
// Keeping it as one explicit structure localizes the shared mutable state
// instead of scattering bounds across edges.
type SourceStats struct {
	ranges  map[string]SourceRange
	version uint64
}

// NewSourceStats returns an empty side-table.
func NewSourceStats() *SourceStats {
	return &SourceStats{ranges: make(map[string]SourceRange)}
}

// Rebuild scans all edges and recollects min/max per source, bumping the
// version counter.
func (s *SourceStats) Rebuild(edges []*Edge) {
	s.ranges = make(map[string]SourceRange)
	for _, e := range edges {
		for sourceID, value := range e.Contributions {
			r, ok := s.ranges[sourceID]
			if !ok {
				s.ranges[sourceID] = SourceRange{Min: value, Max: value}
				continue
			}
			if value < r.Min {
				r.Min = value
			}
			if value > r.Max {
				r.Max = value
			}
			s.ranges[sourceID] = r
		}
	}
	s.version++
}

// Range returns the observed bounds for a source.
func (s *SourceStats) Range(sourceID string) (SourceRange, bool) {
	r, ok := s.ranges[sourceID]
	return r, ok
}

// Version returns the rebuild counter.
func (s *SourceStats) Version() uint64 { return s.version }

// Normalize maps one contribution value into the common [floor, 1] band
// using the source's observed range.
//
//	normalized = (v - min + α·range) / ((1+α)·range)
//
// Degenerate case (min == max): every contribution normalizes to 1.0. A
// source with no observed range at all gets the same treatment; real
// evidence never maps to zero.
func (s *SourceStats) Normalize(sourceID string, value float64) float64 {
	r, ok := s.ranges[sourceID]
	if !ok {
		return 1.0
	}
	span := r.Max - r.Min
	if span == 0 {
		return 1.0
	}
	return (value - r.Min + FloorAlpha*span) / ((1 + FloorAlpha) * span)
}

// RecomputeRawWeights rebuilds the contribution side-table and recomputes
// every edge's raw weight as the sum of its scale-normalized contributions.
// Edges without contributions keep their raw weight untouched.
//
// This is the only code path allowed to write Edge.RawWeight.
func (c *Context) RecomputeRawWeights() {
	if len(c.Edges) == 0 {
		return
	}
	if c.stats == nil {
		c.stats = NewSourceStats()
	}
	c.stats.Rebuild(c.Edges)

	for _, e := range c.Edges {
		if len(e.Contributions) == 0 {
			continue
		}
		sum := 0.0
		for sourceID, value := range e.Contributions {
			sum += c.stats.Normalize(sourceID, value)
		}
		e.RawWeight = sum
	}
}

// Stats exposes the contribution side-table for inspection.
func (c *Context) Stats() *SourceStats {
	if c.stats == nil {
		c.stats = NewSourceStats()
	}
	return c.stats
}
