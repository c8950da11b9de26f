package graph

import "time"

// ContextMetadata carries bookkeeping information about a context.
type ContextMetadata struct {
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Owner      string            `json:"owner,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Context is an isolated graph instance: one logical dataset with its own
// nodes, edges, and per-source contribution statistics. Contexts never share
// nodes or edges with each other, and a context is the unit of locking and
// persistence. Callers must serialize mutations per context (single writer);
// the engine package enforces this.
type Context struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Nodes       map[string]*Node `json:"nodes"`
	Edges       []*Edge          `json:"edges"`
	Metadata    ContextMetadata  `json:"metadata"`

	// stats is the per-source min/max side-table backing scale
	// normalization. Rebuilt by RecomputeRawWeights; never persisted.
	stats *SourceStats
}

// NewContext creates an empty context with a generated ID.
func NewContext(name string) *Context {
	return NewContextWithID(NewID(), name)
}

// NewContextWithID creates an empty context with a caller-chosen ID.
func NewContextWithID(id, name string) *Context {
	return &Context{
		ID:    id,
		Name:  name,
		Nodes: make(map[string]*Node),
		Metadata: ContextMetadata{
			CreatedAt: time.Now().UTC(),
		},
		stats: NewSourceStats(),
	}
}

// AddNode inserts or upserts a node. Upserting merges properties per key,
// last writer wins; node type, content type, dimension, and source are
// replaced by the incoming node.
func (c *Context) AddNode(node *Node) string {
	if existing, ok := c.Nodes[node.ID]; ok {
		existing.NodeType = node.NodeType
		existing.ContentType = node.ContentType
		existing.Dimension = node.Dimension
		if node.Source != "" {
			existing.Source = node.Source
		}
		for k, v := range node.Properties {
			if existing.Properties == nil {
				existing.Properties = make(Properties)
			}
			existing.Properties[k] = v
		}
		existing.ModifiedAt = time.Now().UTC()
	} else {
		c.Nodes[node.ID] = node
	}
	c.touch()
	return node.ID
}

// GetNode returns the node with the given ID, or nil if absent.
func (c *Context) GetNode(id string) *Node {
	return c.Nodes[id]
}

// HasNode reports whether a node with the given ID exists.
func (c *Context) HasNode(id string) bool {
	_, ok := c.Nodes[id]
	return ok
}

// AddEdge inserts an edge, merging into an existing edge with the same
// (source, target, relationship) identity. Merging copies contribution
// slots per source (replacing each slot's value) and merges properties per
// key. Callers are responsible for running RecomputeRawWeights after all
// edges of a batch are in place.
func (c *Context) AddEdge(edge *Edge) {
	for _, existing := range c.Edges {
		if existing.SameIdentity(edge) {
			for sourceID, value := range edge.Contributions {
				if existing.Contributions == nil {
					existing.Contributions = make(map[string]float64)
				}
				existing.Contributions[sourceID] = value
			}
			for k, v := range edge.Properties {
				if existing.Properties == nil {
					existing.Properties = make(Properties)
				}
				existing.Properties[k] = v
			}
			c.touch()
			return
		}
	}
	c.Edges = append(c.Edges, edge)
	c.touch()
}

// FindEdge returns the edge with the given identity triple, or nil.
func (c *Context) FindEdge(source, target, relationship string) *Edge {
	for _, e := range c.Edges {
		if e.Source == source && e.Target == target && e.Relationship == relationship {
			return e
		}
	}
	return nil
}

// HasEdge reports whether an edge with the given identity triple exists.
func (c *Context) HasEdge(source, target, relationship string) bool {
	return c.FindEdge(source, target, relationship) != nil
}

// OutgoingEdges returns all edges whose source is the given node.
func (c *Context) OutgoingEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range c.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncidentEdges returns all edges touching the given node as source or target.
func (c *Context) IncidentEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range c.Edges {
		if e.Source == nodeID || e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// RemoveNode deletes a node and cascades to all incident edges.
// Returns the IDs of cascaded edges. Removing an absent node is a no-op.
func (c *Context) RemoveNode(nodeID string) (removed bool, cascadedEdgeIDs []string) {
	if _, ok := c.Nodes[nodeID]; !ok {
		return false, nil
	}
	delete(c.Nodes, nodeID)

	kept := c.Edges[:0]
	for _, e := range c.Edges {
		if e.Source == nodeID || e.Target == nodeID {
			cascadedEdgeIDs = append(cascadedEdgeIDs, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	c.Edges = kept
	c.touch()
	return true, cascadedEdgeIDs
}

// NodeCount returns the number of nodes in the context.
func (c *Context) NodeCount() int { return len(c.Nodes) }

// EdgeCount returns the number of edges in the context.
func (c *Context) EdgeCount() int { return len(c.Edges) }

// Clone returns a deep copy of the context, used as a consistent snapshot
// for derivation units and query-time normalization. The clone's stats
// side-table is rebuilt lazily on its next recompute.
func (c *Context) Clone() *Context {
	clone := &Context{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Nodes:       make(map[string]*Node, len(c.Nodes)),
		Edges:       make([]*Edge, 0, len(c.Edges)),
		Metadata:    c.Metadata,
		stats:       NewSourceStats(),
	}
	for id, n := range c.Nodes {
		clone.Nodes[id] = n.Clone()
	}
	for _, e := range c.Edges {
		clone.Edges = append(clone.Edges, e.Clone())
	}
	if len(c.Metadata.Tags) > 0 {
		clone.Metadata.Tags = append([]string(nil), c.Metadata.Tags...)
	}
	if c.Metadata.Properties != nil {
		clone.Metadata.Properties = make(map[string]string, len(c.Metadata.Properties))
		for k, v := range c.Metadata.Properties {
			clone.Metadata.Properties[k] = v
		}
	}
	return clone
}

// RetractContributions removes one source's contribution slot from every
// edge in the context, recomputes raw weights from what remains, and prunes
// edges left with no contributions at all. An edge with zero supporting
// evidence does not exist.
//
// Retracting a source that never contributed is a no-op and returns (0, nil).
func (c *Context) RetractContributions(sourceID string) (affected int, prunedEdgeIDs []string) {
	wasAffected := make(map[string]bool)
	for _, e := range c.Edges {
		if _, ok := e.Contributions[sourceID]; ok {
			delete(e.Contributions, sourceID)
			wasAffected[e.ID] = true
			affected++
		}
	}
	if affected == 0 {
		return 0, nil
	}

	kept := c.Edges[:0]
	for _, e := range c.Edges {
		if wasAffected[e.ID] && len(e.Contributions) == 0 {
			prunedEdgeIDs = append(prunedEdgeIDs, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	c.Edges = kept

	c.RecomputeRawWeights()
	c.touch()
	return affected, prunedEdgeIDs
}

func (c *Context) touch() {
	c.Metadata.UpdatedAt = time.Now().UTC()
}
