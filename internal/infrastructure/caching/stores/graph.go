// Package stores provides concrete cache store implementations
package stores

import (
	"sort"
	"sync"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/types"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
)

// GraphStore implements the board-scoped graph registries: payloads,
// polished payloads, binaries, published outputs, edges, and the render
// version counter.
type GraphStore struct {
	boardCaches map[string]*types.BoardGraphCache
	mu          sync.RWMutex
	logger      *logging.ChanneledLogger
}

// NewGraphStore creates a new graph cache store
func NewGraphStore(logger *logging.ChanneledLogger) *GraphStore {
	return &GraphStore{
		boardCaches: make(map[string]*types.BoardGraphCache),
		logger:      logger,
	}
}

// InitializeBoard creates cache structures for a board
func (gs *GraphStore) InitializeBoard(boardID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.boardCaches[boardID] == nil {
		gs.boardCaches[boardID] = &types.BoardGraphCache{
			Payloads:    make(map[string]map[graph.Slot]*design.Payload),
			Polished:    make(map[string]map[graph.Slot]*design.Payload),
			Binaries:    make(map[string]*design.SourceBinary),
			Published:   make(map[string]map[graph.Slot]*design.RenderResult),
			Edges:       make([]graph.Edge, 0),
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetBoardCache safely retrieves a board's graph cache
func (gs *GraphStore) GetBoardCache(boardID string) (*types.BoardGraphCache, bool) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	cache, exists := gs.boardCaches[boardID]
	return cache, exists
}

// GetAllBoardIDs returns all board IDs present in the store
func (gs *GraphStore) GetAllBoardIDs() []string {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	ids := make([]string, 0, len(gs.boardCaches))
	for id := range gs.boardCaches {
		ids = append(ids, id)
	}
	return ids
}

// RegisterPayload stores a raw payload at a node's output slot.
func (gs *GraphStore) RegisterPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		gs.InitializeBoard(boardID)
		cache, _ = gs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if cache.Payloads[nodeID] == nil {
		cache.Payloads[nodeID] = make(map[graph.Slot]*design.Payload)
	}
	cache.Payloads[nodeID][slot] = payload
	cache.LastUpdated = time.Now().UTC()
}

// RegisterPolishedPayload stores a review-stage payload at a node's output slot.
func (gs *GraphStore) RegisterPolishedPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		gs.InitializeBoard(boardID)
		cache, _ = gs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if cache.Polished[nodeID] == nil {
		cache.Polished[nodeID] = make(map[graph.Slot]*design.Payload)
	}
	cache.Polished[nodeID][slot] = payload
	cache.LastUpdated = time.Now().UTC()
}

// RawPayload retrieves a raw payload by node and slot.
func (gs *GraphStore) RawPayload(boardID, nodeID string, slot graph.Slot) (*design.Payload, bool) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	slots, ok := cache.Payloads[nodeID]
	if !ok {
		return nil, false
	}
	p, ok := slots[slot]
	return p, ok
}

// PolishedPayload retrieves a polished payload by node and slot.
func (gs *GraphStore) PolishedPayload(boardID, nodeID string, slot graph.Slot) (*design.Payload, bool) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	slots, ok := cache.Polished[nodeID]
	if !ok {
		return nil, false
	}
	p, ok := slots[slot]
	return p, ok
}

// UnregisterNode removes a node's payloads and published outputs.
func (gs *GraphStore) UnregisterNode(boardID, nodeID string) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	delete(cache.Payloads, nodeID)
	delete(cache.Polished, nodeID)
	delete(cache.Published, nodeID)
	cache.LastUpdated = time.Now().UTC()

	if gs.logger != nil {
		gs.logger.Cache().Debug("Node unregistered", "boardId", boardID, "nodeId", nodeID)
	}
}

// RegisterBinary stores an uploaded source binary.
func (gs *GraphStore) RegisterBinary(boardID string, binary *design.SourceBinary) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		gs.InitializeBoard(boardID)
		cache, _ = gs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Binaries[binary.ID] = binary
	cache.LastUpdated = time.Now().UTC()
}

// GetBinary retrieves a source binary by id.
func (gs *GraphStore) GetBinary(boardID, sourceID string) (*design.SourceBinary, bool) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	b, ok := cache.Binaries[sourceID]
	return b, ok
}

// SetEdges replaces the board's edge set.
func (gs *GraphStore) SetEdges(boardID string, edges []graph.Edge) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		gs.InitializeBoard(boardID)
		cache, _ = gs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Edges = edges
	cache.LastUpdated = time.Now().UTC()
}

// GetEdges returns a copy of the board's edge set.
func (gs *GraphStore) GetEdges(boardID string) []graph.Edge {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	edges := make([]graph.Edge, len(cache.Edges))
	copy(edges, cache.Edges)
	return edges
}

// Publish stores a render result at a node's output slot, last-write-wins.
func (gs *GraphStore) Publish(boardID, nodeID string, slot graph.Slot, result *design.RenderResult) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		gs.InitializeBoard(boardID)
		cache, _ = gs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if cache.Published[nodeID] == nil {
		cache.Published[nodeID] = make(map[graph.Slot]*design.RenderResult)
	}
	cache.Published[nodeID][slot] = result
	cache.LastUpdated = time.Now().UTC()
}

// GetPublished retrieves the last published result at a node's output slot.
func (gs *GraphStore) GetPublished(boardID, nodeID string, slot graph.Slot) (*design.RenderResult, bool) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	slots, ok := cache.Published[nodeID]
	if !ok {
		return nil, false
	}
	r, ok := slots[slot]
	return r, ok
}

// GetAllPublished returns the latest preview-slot result per node.
func (gs *GraphStore) GetAllPublished(boardID string) map[string]*design.RenderResult {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return map[string]*design.RenderResult{}
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	out := make(map[string]*design.RenderResult, len(cache.Published))
	for nodeID, slots := range cache.Published {
		if r, ok := slots[graph.SlotPreview]; ok {
			out[nodeID] = r
		}
	}
	return out
}

// TrimPublished drops the oldest published preview results beyond keep
// and returns the number removed. Trimmed nodes republish on their next
// evaluation.
func (gs *GraphStore) TrimPublished(boardID string, keep int) int {
	if keep <= 0 {
		return 0
	}
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	type aged struct {
		nodeID string
		at     time.Time
	}
	entries := make([]aged, 0, len(cache.Published))
	for nodeID, slots := range cache.Published {
		if r, ok := slots[graph.SlotPreview]; ok {
			entries = append(entries, aged{nodeID, r.PublishedAt})
		}
	}
	if len(entries) <= keep {
		return 0
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	var trimmed int
	for _, e := range entries[:len(entries)-keep] {
		delete(cache.Published[e.nodeID], graph.SlotPreview)
		if len(cache.Published[e.nodeID]) == 0 {
			delete(cache.Published, e.nodeID)
		}
		trimmed++
	}
	cache.LastUpdated = time.Now().UTC()

	if gs.logger != nil {
		gs.logger.Cache().Debug("Trimmed published results", "boardId", boardID, "trimmed", trimmed)
	}
	return trimmed
}

// RenderVersion returns the board's current render version.
func (gs *GraphStore) RenderVersion(boardID string) uint64 {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return 0
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return cache.RenderVersion
}

// BumpRenderVersion increments the board's render version and returns
// the new value.
func (gs *GraphStore) BumpRenderVersion(boardID string) uint64 {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		gs.InitializeBoard(boardID)
		cache, _ = gs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.RenderVersion++
	cache.LastUpdated = time.Now().UTC()
	return cache.RenderVersion
}

// InvalidateGraphCache clears all registries for a board.
func (gs *GraphStore) InvalidateGraphCache(boardID string) {
	cache, exists := gs.GetBoardCache(boardID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Payloads = make(map[string]map[graph.Slot]*design.Payload)
	cache.Polished = make(map[string]map[graph.Slot]*design.Payload)
	cache.Binaries = make(map[string]*design.SourceBinary)
	cache.Published = make(map[string]map[graph.Slot]*design.RenderResult)
	cache.Edges = make([]graph.Edge, 0)
	cache.LastUpdated = time.Now().UTC()
}

// RemoveBoard drops a board's cache entirely.
func (gs *GraphStore) RemoveBoard(boardID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	delete(gs.boardCaches, boardID)
}
