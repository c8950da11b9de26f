// Package query provides read-side normalization over raw edge weights.
// Strategies never mutate stored state; they compute relative importance
// from a context snapshot at read time.
package query

import (
	"math"
	"sort"

	"github.com/dan-solli/goplexus/pkg/graph"
)

// NormalizedEdge pairs an edge with its query-time normalized weight.
type NormalizedEdge struct {
	Edge   *graph.Edge
	Weight float64
}

// NormalizationStrategy converts a node's outgoing raw weights into
// relative importance. Implementations must be pure reads.
type NormalizationStrategy interface {
	Name() string
	Normalize(nodeID string, snapshot *graph.Context) []NormalizedEdge
}

// OutgoingDivisive is the default strategy: each outgoing edge's raw weight
// divided by the sum of the node's outgoing raw weights. Reinforcing one
// edge therefore weakens its siblings relatively, with no stored mutation
// anywhere; a quiescent graph is stable by construction.
type OutgoingDivisive struct{}

// Name returns the strategy identifier.
func (OutgoingDivisive) Name() string { return "outgoing_divisive" }

// Normalize returns the node's outgoing edges with weights summing to 1,
// sorted by weight descending. A node with no outgoing edges yields nil.
func (OutgoingDivisive) Normalize(nodeID string, snapshot *graph.Context) []NormalizedEdge {
	edges := snapshot.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return nil
	}
	total := 0.0
	for _, e := range edges {
		total += e.RawWeight
	}
	out := make([]NormalizedEdge, 0, len(edges))
	for _, e := range edges {
		w := 0.0
		if total > 0 {
			w = e.RawWeight / total
		}
		out = append(out, NormalizedEdge{Edge: e, Weight: w})
	}
	sortByWeight(out)
	return out
}

// Softmax is an alternative strategy emphasizing the strongest edges:
// exp(w_i) / Σ exp(w_k) over the node's outgoing edges, computed with the
// max subtracted for numerical stability.
type Softmax struct {
	// Temperature scales the contrast; values below or equal to zero are
	// treated as 1.
	Temperature float64
}

// Name returns the strategy identifier.
func (Softmax) Name() string { return "softmax" }

// Normalize returns the node's outgoing edges under a softmax distribution,
// sorted by weight descending.
func (s Softmax) Normalize(nodeID string, snapshot *graph.Context) []NormalizedEdge {
	edges := snapshot.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return nil
	}
	temp := s.Temperature
	if temp <= 0 {
		temp = 1
	}

	maxW := math.Inf(-1)
	for _, e := range edges {
		if e.RawWeight > maxW {
			maxW = e.RawWeight
		}
	}

	exps := make([]float64, len(edges))
	total := 0.0
	for i, e := range edges {
		exps[i] = math.Exp((e.RawWeight - maxW) / temp)
		total += exps[i]
	}

	out := make([]NormalizedEdge, 0, len(edges))
	for i, e := range edges {
		out = append(out, NormalizedEdge{Edge: e, Weight: exps[i] / total})
	}
	sortByWeight(out)
	return out
}

// NormalizedWeights is a convenience over a strategy: normalized weight per
// target node ID for one source node.
func NormalizedWeights(strategy NormalizationStrategy, nodeID string, snapshot *graph.Context) map[string]float64 {
	out := make(map[string]float64)
	for _, ne := range strategy.Normalize(nodeID, snapshot) {
		// Parallel edges to the same target accumulate.
		out[ne.Edge.Target] += ne.Weight
	}
	return out
}

func sortByWeight(edges []NormalizedEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		return edges[i].Edge.Target < edges[j].Edge.Target
	})
}
