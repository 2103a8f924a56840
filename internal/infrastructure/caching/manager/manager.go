// Package manager provides centralized cache operations with proper
// board isolation
package manager

import (
	"sync"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/interfaces"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/stores"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
)

// Interface assertions to ensure Manager implements all required interfaces.
var (
	_ interfaces.Cache      = (*Manager)(nil)
	_ interfaces.GraphCache = (*Manager)(nil)
)

// Manager provides centralized cache operations with proper board
// isolation by delegating to specialized stores.
type Manager struct {
	Mu           sync.RWMutex
	LastAccessed map[string]time.Time
	graphStore   *stores.GraphStore
	renderStore  *stores.RenderStore
	logger       *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"graph", "renders"})
	}

	return &Manager{
		LastAccessed: make(map[string]time.Time),
		graphStore:   stores.NewGraphStore(logger),
		renderStore:  stores.NewRenderStore(logger),
		logger:       logger,
	}
}

func (m *Manager) updateBoardAccessTime(boardID string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LastAccessed[boardID] = time.Now().UTC()
}

// LastAccessTimes returns a snapshot of per-board access times.
func (m *Manager) LastAccessTimes() map[string]time.Time {
	m.Mu.RLock()
	defer m.Mu.RUnlock()
	out := make(map[string]time.Time, len(m.LastAccessed))
	for id, t := range m.LastAccessed {
		out[id] = t
	}
	return out
}

func (m *Manager) InitializeBoard(boardID string) {
	start := time.Now()
	if m.logger != nil {
		m.logger.Cache().Debug("Initializing board cache", "boardId", boardID)
	}

	m.graphStore.InitializeBoard(boardID)
	m.renderStore.InitializeBoard(boardID)
	m.updateBoardAccessTime(boardID)

	if m.logger != nil {
		m.logger.Cache().Info("Board cache initialized", "boardId", boardID, "duration", time.Since(start))
	}
}

func (m *Manager) GetAllBoardIDs() []string {
	return m.graphStore.GetAllBoardIDs()
}

// HasBoard reports whether a board's caches already exist, without
// creating them.
func (m *Manager) HasBoard(boardID string) bool {
	_, ok := m.graphStore.GetBoardCache(boardID)
	return ok
}

func (m *Manager) RegisterPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload) {
	m.graphStore.RegisterPayload(boardID, nodeID, slot, payload)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) RegisterPolishedPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload) {
	m.graphStore.RegisterPolishedPayload(boardID, nodeID, slot, payload)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) RawPayload(boardID, nodeID string, slot graph.Slot) (*design.Payload, bool) {
	return m.graphStore.RawPayload(boardID, nodeID, slot)
}

func (m *Manager) PolishedPayload(boardID, nodeID string, slot graph.Slot) (*design.Payload, bool) {
	return m.graphStore.PolishedPayload(boardID, nodeID, slot)
}

func (m *Manager) UnregisterNode(boardID, nodeID string) {
	m.graphStore.UnregisterNode(boardID, nodeID)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) RegisterBinary(boardID string, binary *design.SourceBinary) {
	m.graphStore.RegisterBinary(boardID, binary)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) GetBinary(boardID, sourceID string) (*design.SourceBinary, bool) {
	return m.graphStore.GetBinary(boardID, sourceID)
}

func (m *Manager) SetEdges(boardID string, edges []graph.Edge) {
	m.graphStore.SetEdges(boardID, edges)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) GetEdges(boardID string) []graph.Edge {
	return m.graphStore.GetEdges(boardID)
}

func (m *Manager) Publish(boardID, nodeID string, slot graph.Slot, result *design.RenderResult) {
	m.graphStore.Publish(boardID, nodeID, slot, result)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) GetPublished(boardID, nodeID string, slot graph.Slot) (*design.RenderResult, bool) {
	return m.graphStore.GetPublished(boardID, nodeID, slot)
}

func (m *Manager) GetAllPublished(boardID string) map[string]*design.RenderResult {
	return m.graphStore.GetAllPublished(boardID)
}

func (m *Manager) TrimPublished(boardID string, keep int) int {
	return m.graphStore.TrimPublished(boardID, keep)
}

func (m *Manager) RenderVersion(boardID string) uint64 {
	return m.graphStore.RenderVersion(boardID)
}

func (m *Manager) BumpRenderVersion(boardID string) uint64 {
	v := m.graphStore.BumpRenderVersion(boardID)
	m.updateBoardAccessTime(boardID)
	return v
}

func (m *Manager) GetRender(boardID string, signature uint64) (string, bool) {
	return m.renderStore.GetRender(boardID, signature)
}

func (m *Manager) SetRender(boardID string, signature uint64, nodeID, imageRef string) {
	m.renderStore.SetRender(boardID, signature, nodeID, imageRef)
	m.updateBoardAccessTime(boardID)
}

// PurgeExpiredRenders drops render records older than ttl for a board.
func (m *Manager) PurgeExpiredRenders(boardID string, ttl time.Duration) int {
	return m.renderStore.PurgeExpiredRenders(boardID, ttl)
}

func (m *Manager) InvalidateRenders(boardID string) {
	m.renderStore.InvalidateRenders(boardID)
	m.updateBoardAccessTime(boardID)
}

func (m *Manager) InvalidateBoard(boardID string) {
	start := time.Now()
	if m.logger != nil {
		m.logger.Cache().Debug("Invalidating board cache", "boardId", boardID)
	}

	m.graphStore.InvalidateGraphCache(boardID)
	m.renderStore.InvalidateRenders(boardID)
	m.updateBoardAccessTime(boardID)

	if m.logger != nil {
		m.logger.Cache().Info("Board cache invalidated", "boardId", boardID, "duration", time.Since(start))
	}
}

// EvictBoard removes a board's caches entirely, including its access
// time entry.
func (m *Manager) EvictBoard(boardID string) {
	m.graphStore.RemoveBoard(boardID)
	m.renderStore.RemoveBoard(boardID)

	m.Mu.Lock()
	defer m.Mu.Unlock()
	delete(m.LastAccessed, boardID)
}

// PayloadView returns a board-bound view of the payload registries
// satisfying graph.PayloadSource.
func (m *Manager) PayloadView(boardID string) graph.PayloadSource {
	return &payloadView{boardID: boardID, m: m}
}

type payloadView struct {
	boardID string
	m       *Manager
}

func (v *payloadView) PolishedPayload(nodeID string, slot graph.Slot) (*design.Payload, bool) {
	return v.m.PolishedPayload(v.boardID, nodeID, slot)
}

func (v *payloadView) RawPayload(nodeID string, slot graph.Slot) (*design.Payload, bool) {
	return v.m.RawPayload(v.boardID, nodeID, slot)
}

func (m *Manager) Health() map[string]any {
	return map[string]any{"status": "ok", "boards": len(m.GetAllBoardIDs())}
}
