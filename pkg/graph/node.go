// Package graph provides the core data structures for goplexus knowledge graphs:
// contexts, nodes, edges, and the contribution-based weight model.
package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dimension names partition the graph into logical layers. Edges may cross
// dimensions; nodes belong to exactly one.
const (
	DimensionStructure  = "structure"
	DimensionSemantic   = "semantic"
	DimensionRelational = "relational"
	DimensionProvenance = "provenance"

	// DefaultDimension is assigned to nodes created without an explicit dimension.
	DefaultDimension = DimensionStructure
)

// ContentType classifies the origin domain of a node.
type ContentType string

// Known content types. Subtypes (e.g. code language) belong in properties.
const (
	ContentCode       ContentType = "code"
	ContentMovement   ContentType = "movement"
	ContentNarrative  ContentType = "narrative"
	ContentConcept    ContentType = "concept"
	ContentDocument   ContentType = "document"
	ContentAgent      ContentType = "agent"
	ContentProvenance ContentType = "provenance"
)

// ParseContentType converts a string to a ContentType, case-insensitively.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(s)) {
	case ContentCode, ContentMovement, ContentNarrative, ContentConcept,
		ContentDocument, ContentAgent, ContentProvenance:
		return ContentType(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown content type: %s", s)
	}
}

// Properties is an open-ended property bag attached to nodes and edges.
// Values are scalars, strings, nested maps, or slices thereof.
type Properties map[string]interface{}

// NewID returns a fresh random identifier (UUID string). Callers may also
// use semantic IDs like "concept:recursion" anywhere an ID is expected.
func NewID() string {
	return uuid.New().String()
}

// Node is a single entity in a knowledge graph context.
type Node struct {
	ID          string      `json:"id"`
	NodeType    string      `json:"node_type"`    // type within the domain, e.g. "function", "pose"
	ContentType ContentType `json:"content_type"` // origin domain
	Dimension   string      `json:"dimension"`    // logical layer
	Properties  Properties  `json:"properties,omitempty"`
	Source      string      `json:"source,omitempty"` // where the node came from (file path, URL)
	CreatedAt   time.Time   `json:"created_at"`
	ModifiedAt  time.Time   `json:"modified_at"`
}

// NewNode creates a node in the default dimension with a generated ID.
func NewNode(nodeType string, contentType ContentType) *Node {
	now := time.Now().UTC()
	return &Node{
		ID:          NewID(),
		NodeType:    nodeType,
		ContentType: contentType,
		Dimension:   DefaultDimension,
		Properties:  make(Properties),
		CreatedAt:   now,
		ModifiedAt:  now,
	}
}

// NewNodeInDimension creates a node in a specific dimension.
func NewNodeInDimension(nodeType string, contentType ContentType, dimension string) *Node {
	n := NewNode(nodeType, contentType)
	n.Dimension = dimension
	return n
}

// WithID sets a semantic ID and returns the node for chaining.
func (n *Node) WithID(id string) *Node {
	n.ID = id
	return n
}

// WithProperty sets one property and returns the node for chaining.
func (n *Node) WithProperty(key string, value interface{}) *Node {
	if n.Properties == nil {
		n.Properties = make(Properties)
	}
	n.Properties[key] = value
	return n
}

// WithSource sets the source location and returns the node for chaining.
func (n *Node) WithSource(source string) *Node {
	n.Source = source
	return n
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Properties = cloneProperties(n.Properties)
	return &c
}

func cloneProperties(p Properties) Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
