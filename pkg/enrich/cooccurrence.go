// Package enrich provides concrete derivation units that react to committed
// graph changes and propose further structure through the ordinary emission
// path.
package enrich

import (
	"sort"

	"github.com/dan-solli/goplexus/pkg/adapter"
	"github.com/dan-solli/goplexus/pkg/graph"
)

// CoOccurrence derives relatedness between nodes that point at shared
// targets: when two nodes both carry an evidence edge to the same target,
// it proposes an edge between them whose contribution is the number of
// shared targets.
//
// Convergence comes from checking the snapshot: a pair is only proposed
// when its derived edge is missing or its shared-target count changed, so
// a stable graph produces nothing and the loop quiesces.
type CoOccurrence struct {
	evidenceRel string
	derivedRel  string
}

// NewCoOccurrence creates a unit that watches evidenceRel edges and derives
// derivedRel edges between co-occurring sources.
func NewCoOccurrence(evidenceRel, derivedRel string) *CoOccurrence {
	return &CoOccurrence{evidenceRel: evidenceRel, derivedRel: derivedRel}
}

// ID returns the unit's stable identifier.
func (c *CoOccurrence) ID() string { return "co_occurrence:" + c.evidenceRel }

// Enrich scans the snapshot for node pairs sharing evidence targets and
// proposes derived edges for pairs whose count is new or changed.
func (c *CoOccurrence) Enrich(events []adapter.GraphEvent, snapshot *graph.Context) *adapter.Emission {
	if !c.relevant(events) {
		return nil
	}

	// target id -> source node ids carrying evidence toward it
	byTarget := make(map[string][]string)
	for _, e := range snapshot.Edges {
		if e.Relationship == c.evidenceRel {
			byTarget[e.Target] = append(byTarget[e.Target], e.Source)
		}
	}

	shared := make(map[[2]string]int)
	for _, sources := range byTarget {
		sort.Strings(sources)
		for i := 0; i < len(sources); i++ {
			for j := i + 1; j < len(sources); j++ {
				if sources[i] == sources[j] {
					continue
				}
				shared[[2]string{sources[i], sources[j]}]++
			}
		}
	}

	emission := adapter.NewEmission()
	proposed := false
	for pair, count := range shared {
		existing := snapshot.FindEdge(pair[0], pair[1], c.derivedRel)
		if existing != nil && existing.Contributions[c.ID()] == float64(count) {
			continue
		}
		emission.AddEdge(graph.NewEdge(pair[0], pair[1], c.derivedRel), float64(count))
		proposed = true
	}
	if !proposed {
		return nil
	}
	return emission
}

// relevant reports whether this round's events could have changed the
// evidence topology at all.
func (c *CoOccurrence) relevant(events []adapter.GraphEvent) bool {
	for _, ev := range events {
		switch ev.Kind {
		case adapter.EventEdgesAdded, adapter.EventEdgesRemoved, adapter.EventNodesRemoved:
			return true
		}
	}
	return false
}
