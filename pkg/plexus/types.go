package plexus

import (
	"github.com/dan-solli/goplexus/pkg/adapter"
	"github.com/dan-solli/goplexus/pkg/graph"
)

// Type re-exports for caller convenience

// Node is re-exported from graph package
type Node = graph.Node

// Edge is re-exported from graph package
type Edge = graph.Edge

// Context is re-exported from graph package
type Context = graph.Context

// Emission is re-exported from adapter package
type Emission = adapter.Emission

// EmitResult is re-exported from adapter package
type EmitResult = adapter.EmitResult

// GraphEvent is re-exported from adapter package
type GraphEvent = adapter.GraphEvent

// Sink is re-exported from adapter package
type Sink = adapter.Sink

// Adapter is re-exported from adapter package
type Adapter = adapter.Adapter

// Enrichment is re-exported from adapter package
type Enrichment = adapter.Enrichment

// Dimension constants re-exported from graph package
const (
	DimensionStructure  = graph.DimensionStructure
	DimensionSemantic   = graph.DimensionSemantic
	DimensionRelational = graph.DimensionRelational
	DimensionProvenance = graph.DimensionProvenance
)
