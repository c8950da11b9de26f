package adapter

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptySourceID indicates an emit attempt without a source identifier.
var ErrEmptySourceID = errors.New("source id must not be empty")

// ErrNilEmission indicates an emit attempt with a nil emission.
var ErrNilEmission = errors.New("emission must not be nil")

// RejectionReason classifies why an emission item was not committed.
type RejectionReason string

const (
	// RejectMissingEndpoint marks an edge whose source or target node is
	// neither in the graph nor earlier in the same emission.
	RejectMissingEndpoint RejectionReason = "missing_endpoint"

	// RejectInvalidItem marks a structurally unusable item (nil node or
	// edge, blank identity field).
	RejectInvalidItem RejectionReason = "invalid_item"

	// RejectNonFinite marks an edge contribution that is NaN or infinite.
	RejectNonFinite RejectionReason = "non_finite_contribution"
)

// Rejection reports one emission item that failed validation. Rejections
// are per-item and non-fatal: the rest of the emission still commits.
type Rejection struct {
	Reason      RejectionReason `json:"reason"`
	Description string          `json:"description"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Description)
}

// EmitResult reports what one committed emission did.
type EmitResult struct {
	NodesCommitted    int             `json:"nodes_committed"`
	EdgesCommitted    int             `json:"edges_committed"`
	RemovalsCommitted int             `json:"removals_committed"`
	Rejections        []Rejection     `json:"rejections,omitempty"`
	Events            []GraphEvent    `json:"events,omitempty"`
	Provenance        ProvenanceEntry `json:"provenance"`
}

// FullyCommitted reports whether every item in the emission was accepted.
func (r *EmitResult) FullyCommitted() bool {
	return len(r.Rejections) == 0
}

// Noop reports whether the commit changed nothing and fired no events.
func (r *EmitResult) Noop() bool {
	return r.NodesCommitted == 0 && r.EdgesCommitted == 0 &&
		r.RemovalsCommitted == 0 && len(r.Events) == 0
}

// Sink accepts emissions and commits them against one context. The sink is
// bound to a source identity at construction; every edge committed through
// it writes that source's contribution slot.
type Sink interface {
	Emit(ctx context.Context, emission *Emission) (*EmitResult, error)
}
