// Package adapter contains the mutation gateway for goplexus: emissions,
// the validating sink that commits them, graph events, the enrichment loop,
// and the ingest pipeline that ties adapters and enrichments together.
package adapter

import (
	"time"

	"github.com/dan-solli/goplexus/pkg/graph"
)

// Annotation carries optional evidence metadata alongside an emitted node
// or edge: how confident the source is, which method produced it, and where
// in the input it was observed.
type Annotation struct {
	Confidence     float64 `json:"confidence,omitempty"`
	Method         string  `json:"method,omitempty"`
	SourceLocation string  `json:"source_location,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}

// AnnotatedNode is a node upsert proposal.
type AnnotatedNode struct {
	Node       *graph.Node
	Annotation *Annotation
}

// AnnotatedEdge is an edge upsert proposal. Contribution is the emitting
// source's assessment of the edge's strength; the sink writes it into the
// contribution slot keyed by the emitting source's ID.
type AnnotatedEdge struct {
	Edge         *graph.Edge
	Contribution float64
	Annotation   *Annotation
}

// Emission is an atomic batch of proposed graph mutations: nodes to upsert,
// edges to upsert, and node IDs to remove. Within one emission, commit order
// is nodes, then edges, then removals, so an edge may reference a node that
// appears earlier in the same emission.
type Emission struct {
	Nodes    []AnnotatedNode
	Edges    []AnnotatedEdge
	Removals []string
}

// NewEmission creates an empty emission.
func NewEmission() *Emission {
	return &Emission{}
}

// AddNode appends a node upsert proposal.
func (e *Emission) AddNode(node *graph.Node) *Emission {
	e.Nodes = append(e.Nodes, AnnotatedNode{Node: node})
	return e
}

// AddNodeWithAnnotation appends a node upsert proposal with evidence metadata.
func (e *Emission) AddNodeWithAnnotation(node *graph.Node, a Annotation) *Emission {
	e.Nodes = append(e.Nodes, AnnotatedNode{Node: node, Annotation: &a})
	return e
}

// AddEdge appends an edge upsert proposal with the given contribution value.
func (e *Emission) AddEdge(edge *graph.Edge, contribution float64) *Emission {
	e.Edges = append(e.Edges, AnnotatedEdge{Edge: edge, Contribution: contribution})
	return e
}

// AddEdgeWithAnnotation appends an edge upsert proposal with evidence metadata.
func (e *Emission) AddEdgeWithAnnotation(edge *graph.Edge, contribution float64, a Annotation) *Emission {
	e.Edges = append(e.Edges, AnnotatedEdge{Edge: edge, Contribution: contribution, Annotation: &a})
	return e
}

// RemoveNode appends a node removal. Removing a node cascades to its
// incident edges at commit time.
func (e *Emission) RemoveNode(nodeID string) *Emission {
	e.Removals = append(e.Removals, nodeID)
	return e
}

// IsEmpty reports whether the emission proposes no mutations at all.
func (e *Emission) IsEmpty() bool {
	return len(e.Nodes) == 0 && len(e.Edges) == 0 && len(e.Removals) == 0
}

// FrameworkContext identifies who is emitting and into which context.
// The sink owns it; adapters never construct one themselves.
type FrameworkContext struct {
	AdapterID    string
	ContextID    string
	InputSummary string
}

// ProvenanceEntry records the origin of one committed emission.
type ProvenanceEntry struct {
	Framework  FrameworkContext
	Timestamp  time.Time
	Annotation *Annotation
}
