package stores

import (
	"sync"
	"time"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/types"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
)

// RenderStore caches completed composites by cache signature with board
// isolation, so a signature that was rendered once is served from here
// instead of reaching the compositor again.
type RenderStore struct {
	boardCaches map[string]*types.BoardRenderCache
	mu          sync.RWMutex
	logger      *logging.ChanneledLogger
}

// NewRenderStore creates a new render record store
func NewRenderStore(logger *logging.ChanneledLogger) *RenderStore {
	return &RenderStore{
		boardCaches: make(map[string]*types.BoardRenderCache),
		logger:      logger,
	}
}

// InitializeBoard creates cache structures for a board
func (rs *RenderStore) InitializeBoard(boardID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.boardCaches[boardID] == nil {
		rs.boardCaches[boardID] = &types.BoardRenderCache{
			Records:     make(map[uint64]*types.RenderRecord),
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetBoardCache safely retrieves a board's render cache
func (rs *RenderStore) GetBoardCache(boardID string) (*types.BoardRenderCache, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	cache, exists := rs.boardCaches[boardID]
	return cache, exists
}

// GetRender returns the image ref rendered for a signature, if any.
func (rs *RenderStore) GetRender(boardID string, signature uint64) (string, bool) {
	cache, exists := rs.GetBoardCache(boardID)
	if !exists {
		return "", false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	rec, ok := cache.Records[signature]
	if !ok {
		return "", false
	}
	return rec.ImageRef, true
}

// SetRender records a completed composite for a signature.
func (rs *RenderStore) SetRender(boardID string, signature uint64, nodeID, imageRef string) {
	cache, exists := rs.GetBoardCache(boardID)
	if !exists {
		rs.InitializeBoard(boardID)
		cache, _ = rs.GetBoardCache(boardID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Records[signature] = &types.RenderRecord{
		ImageRef:   imageRef,
		NodeID:     nodeID,
		RenderedAt: time.Now().UTC(),
	}
	cache.LastUpdated = time.Now().UTC()
}

// InvalidateRenders clears all render records for a board.
func (rs *RenderStore) InvalidateRenders(boardID string) {
	cache, exists := rs.GetBoardCache(boardID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Records = make(map[uint64]*types.RenderRecord)
	cache.LastUpdated = time.Now().UTC()
}

// PurgeExpiredRenders drops render records older than ttl and returns
// the number removed.
func (rs *RenderStore) PurgeExpiredRenders(boardID string, ttl time.Duration) int {
	cache, exists := rs.GetBoardCache(boardID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	var purged int
	for sig, rec := range cache.Records {
		if time.Since(rec.RenderedAt) > ttl {
			delete(cache.Records, sig)
			purged++
		}
	}
	if purged > 0 {
		cache.LastUpdated = time.Now().UTC()
		if rs.logger != nil {
			rs.logger.Cache().Debug("Purged expired render records", "boardId", boardID, "purged", purged)
		}
	}
	return purged
}

// RemoveBoard drops a board's render cache entirely.
func (rs *RenderStore) RemoveBoard(boardID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.boardCaches, boardID)
}
