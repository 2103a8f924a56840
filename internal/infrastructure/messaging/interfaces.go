// Package messaging provides board-scoped fan-out of preview updates
// over SSE and websockets.
package messaging

// Broadcaster is the outbound notification surface used by the render
// pipeline when a node publishes a new result.
type Broadcaster interface {
	BroadcastRender(boardID, nodeID, imageRef, generationID string)
}
