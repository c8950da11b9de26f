package adapter

// EventKind classifies one committed graph effect.
type EventKind string

const (
	EventNodesAdded             EventKind = "nodes_added"
	EventEdgesAdded             EventKind = "edges_added"
	EventNodesRemoved           EventKind = "nodes_removed"
	EventEdgesRemoved           EventKind = "edges_removed"
	EventWeightsChanged         EventKind = "weights_changed"
	EventContributionsRetracted EventKind = "contributions_retracted"
)

// Edge removal reasons carried on EventEdgesRemoved.
const (
	RemovalReasonDirect     = "direct"
	RemovalReasonCascade    = "cascade"
	RemovalReasonRetraction = "retraction"
)

// GraphEvent is an immutable record of one committed effect. Events are
// produced only by the sink as a side effect of a committed emission.
type GraphEvent struct {
	Kind      EventKind `json:"kind"`
	ContextID string    `json:"context_id,omitempty"`
	AdapterID string    `json:"adapter_id,omitempty"`
	NodeIDs   []string  `json:"node_ids,omitempty"`
	EdgeIDs   []string  `json:"edge_ids,omitempty"`

	// Reason is set on EventEdgesRemoved: "direct" for removals requested
	// by the emission, "cascade" for edges pruned with their endpoint,
	// "retraction" for edges left contribution-less by a retraction.
	Reason string `json:"reason,omitempty"`

	// Affected is set on EventContributionsRetracted: the number of edges
	// that lost a contribution slot.
	Affected int `json:"affected,omitempty"`
}

// OutboundEvent is a domain-meaningful notification an adapter derives from
// the cycle's graph events for its external consumers.
type OutboundEvent struct {
	AdapterID string                 `json:"adapter_id"`
	Kind      string                 `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// EventsOfKind filters an event list down to one kind.
func EventsOfKind(events []GraphEvent, kind EventKind) []GraphEvent {
	var out []GraphEvent
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
