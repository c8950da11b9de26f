package graph

import "time"

// Edge is a directed relationship between two nodes in a context.
//
// Identity is the (Source, Target, Relationship) triple: re-adding the same
// triple merges into the existing edge instead of duplicating it. Self-edges
// are allowed, as are edges whose endpoints live in different dimensions.
//
// RawWeight is derived state. It is always recomputed from Contributions via
// scale normalization (see weights.go) and must never be set directly.
type Edge struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	Target       string     `json:"target"`
	Relationship string     `json:"relationship"`
	RawWeight    float64    `json:"raw_weight"`
	Properties   Properties `json:"properties,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// Contributions maps a source identifier (adapter or enrichment id) to
	// that source's latest assessment of this edge's strength. One slot per
	// source; re-assessment replaces the slot, it never accumulates.
	Contributions map[string]float64 `json:"contributions,omitempty"`
}

// NewEdge creates an edge with a generated ID and no contributions.
func NewEdge(source, target, relationship string) *Edge {
	return &Edge{
		ID:            NewID(),
		Source:        source,
		Target:        target,
		Relationship:  relationship,
		Properties:    make(Properties),
		Contributions: make(map[string]float64),
		CreatedAt:     time.Now().UTC(),
	}
}

// WithContribution records a source's assessment and returns the edge for chaining.
func (e *Edge) WithContribution(sourceID string, value float64) *Edge {
	if e.Contributions == nil {
		e.Contributions = make(map[string]float64)
	}
	e.Contributions[sourceID] = value
	return e
}

// WithProperty sets one property and returns the edge for chaining.
func (e *Edge) WithProperty(key string, value interface{}) *Edge {
	if e.Properties == nil {
		e.Properties = make(Properties)
	}
	e.Properties[key] = value
	return e
}

// SameIdentity reports whether two edges denote the same logical relationship.
func (e *Edge) SameIdentity(other *Edge) bool {
	return e.Source == other.Source &&
		e.Target == other.Target &&
		e.Relationship == other.Relationship
}

// IsSelfEdge reports whether source and target are the same node.
func (e *Edge) IsSelfEdge() bool {
	return e.Source == e.Target
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Properties = cloneProperties(e.Properties)
	if e.Contributions != nil {
		c.Contributions = make(map[string]float64, len(e.Contributions))
		for k, v := range e.Contributions {
			c.Contributions[k] = v
		}
	}
	return &c
}
