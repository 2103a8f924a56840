package graph

import (
	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
)

// PayloadSource exposes a board's payload registries to the resolver.
// Polished entries are review-stage copies and take priority over raw
// entries at the same node and slot.
type PayloadSource interface {
	PolishedPayload(nodeID string, slot Slot) (*design.Payload, bool)
	RawPayload(nodeID string, slot Slot) (*design.Payload, bool)
}

// ResolveInput finds the payload feeding nodeID: it locates the unique
// edge targeting the node's payload slot, then looks the source node up
// in the polished registry first, falling back to raw. Returns false
// when the node has no inbound payload edge or the source has published
// nothing at the edge's source slot.
func ResolveInput(edges []Edge, nodeID string, src PayloadSource) (*design.Payload, bool) {
	edge, ok := InboundPayloadEdge(edges, nodeID)
	if !ok {
		return nil, false
	}
	if p, ok := src.PolishedPayload(edge.SourceNode, edge.SourceSlot); ok {
		return p, true
	}
	if p, ok := src.RawPayload(edge.SourceNode, edge.SourceSlot); ok {
		return p, true
	}
	return nil, false
}
