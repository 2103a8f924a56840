// Package graph models a board's directed edge set and resolves which
// upstream payload feeds a given node.
package graph

// Slot names a connection point on a node. Preview nodes expose a
// payload input, a target-definition input, and a single preview output.
type Slot string

const (
	SlotPayload Slot = "payload"
	SlotTarget  Slot = "target"
	SlotPreview Slot = "preview"
)

// Edge is a directed link from a source node's output slot to a target
// node's input slot. Edges are supplied by the editor and are read-only
// from the relay's perspective.
type Edge struct {
	SourceNode string `json:"sourceNode"`
	SourceSlot Slot   `json:"sourceSlot"`
	TargetNode string `json:"targetNode"`
	TargetSlot Slot   `json:"targetSlot"`
}

// InboundPayloadEdge finds the edge feeding nodeID's payload input slot.
func InboundPayloadEdge(edges []Edge, nodeID string) (Edge, bool) {
	for _, e := range edges {
		if e.TargetNode == nodeID && e.TargetSlot == SlotPayload {
			return e, true
		}
	}
	return Edge{}, false
}

// DownstreamTargets returns the target nodes of every edge rooted at the
// given source node and slot.
func DownstreamTargets(edges []Edge, nodeID string, slot Slot) []string {
	var targets []string
	for _, e := range edges {
		if e.SourceNode == nodeID && e.SourceSlot == slot {
			targets = append(targets, e.TargetNode)
		}
	}
	return targets
}

// PayloadInputNodes returns every node that has an inbound edge on its
// payload slot, deduplicated in edge order.
func PayloadInputNodes(edges []Edge) []string {
	seen := make(map[string]bool)
	var nodes []string
	for _, e := range edges {
		if e.TargetSlot == SlotPayload && !seen[e.TargetNode] {
			seen[e.TargetNode] = true
			nodes = append(nodes, e.TargetNode)
		}
	}
	return nodes
}
