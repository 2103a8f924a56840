// Package types defines the in-memory cache structures backing a board's
// graph store and render cache.
package types

import (
	"sync"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
)

// BoardGraphCache holds every registry the relay protocol reads and
// writes for one board: raw and polished payloads keyed by node and
// output slot, uploaded source binaries, published render results, the
// edge set, and the board-wide render version counter.
type BoardGraphCache struct {
	Mu sync.RWMutex

	Payloads  map[string]map[graph.Slot]*design.Payload
	Polished  map[string]map[graph.Slot]*design.Payload
	Binaries  map[string]*design.SourceBinary
	Published map[string]map[graph.Slot]*design.RenderResult
	Edges     []graph.Edge

	// RenderVersion is monotonically incremented by the user refresh
	// action; it feeds every node's cache signature.
	RenderVersion uint64

	LastUpdated time.Time
}

// RenderRecord is a completed composite keyed by cache signature, so an
// unchanged composition never reaches the compositor twice.
type RenderRecord struct {
	ImageRef   string    `json:"imageRef"`
	NodeID     string    `json:"nodeId"`
	RenderedAt time.Time `json:"renderedAt"`
}

// BoardRenderCache holds a board's signature-keyed render records.
type BoardRenderCache struct {
	Mu      sync.RWMutex
	Records map[uint64]*RenderRecord

	LastUpdated time.Time
}
