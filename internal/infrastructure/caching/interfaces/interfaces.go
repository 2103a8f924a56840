// Package interfaces defines cache operation contracts for board-scoped
// graph state.
package interfaces

import (
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
)

// GraphCache defines the registry, edge, publish, and version operations
// of the graph store.
type GraphCache interface {
	RegisterPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload)
	RegisterPolishedPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload)
	RawPayload(boardID, nodeID string, slot graph.Slot) (*design.Payload, bool)
	PolishedPayload(boardID, nodeID string, slot graph.Slot) (*design.Payload, bool)
	UnregisterNode(boardID, nodeID string)

	RegisterBinary(boardID string, binary *design.SourceBinary)
	GetBinary(boardID, sourceID string) (*design.SourceBinary, bool)

	SetEdges(boardID string, edges []graph.Edge)
	GetEdges(boardID string) []graph.Edge

	Publish(boardID, nodeID string, slot graph.Slot, result *design.RenderResult)
	GetPublished(boardID, nodeID string, slot graph.Slot) (*design.RenderResult, bool)
	GetAllPublished(boardID string) map[string]*design.RenderResult

	RenderVersion(boardID string) uint64
	BumpRenderVersion(boardID string) uint64
}

// RenderCache defines signature-keyed render record operations.
type RenderCache interface {
	GetRender(boardID string, signature uint64) (string, bool)
	SetRender(boardID string, signature uint64, nodeID, imageRef string)
	InvalidateRenders(boardID string)
}

// Cache combines the store contracts with board lifecycle management.
type Cache interface {
	GraphCache
	RenderCache
	InitializeBoard(boardID string)
	InvalidateBoard(boardID string)
	GetAllBoardIDs() []string
	LastAccessTimes() map[string]time.Time
}
