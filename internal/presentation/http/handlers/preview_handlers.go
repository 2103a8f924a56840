package handlers

import (
	"net/http"

	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// PreviewHandlers contains preview inspection and evaluation handlers
type PreviewHandlers struct {
	previewService *services.PreviewService
	cache          *manager.Manager
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewPreviewHandlers creates preview handlers with injected dependencies
func NewPreviewHandlers(previewService *services.PreviewService, cache *manager.Manager, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PreviewHandlers {
	return &PreviewHandlers{
		previewService: previewService,
		cache:          cache,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// GetNodeStatus returns a preview node's controller state
func (h *PreviewHandlers) GetNodeStatus(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	nodeID := c.Param("id")
	if nodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "node id is required"})
		return
	}

	c.JSON(http.StatusOK, h.previewService.Status(boardCtx.BoardID, nodeID))
}

// GetPublished returns a node's published preview result
func (h *PreviewHandlers) GetPublished(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	nodeID := c.Param("id")
	result, ok := h.cache.GetPublished(boardCtx.BoardID, nodeID, graph.SlotPreview)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "node has published nothing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodeId":      nodeID,
		"imageRef":    result.ImageRef,
		"hasVisual":   result.HasVisual(),
		"payload":     result.Payload,
		"publishedAt": result.PublishedAt,
	})
}

// PostEvaluate forces re-evaluation of one node
func (h *PreviewHandlers) PostEvaluate(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	nodeID := c.Param("id")
	if nodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "node id is required"})
		return
	}

	marker := h.perfTracker.StartOperation("evaluate_node_request", boardCtx.BoardID)
	defer marker.Complete()

	h.previewService.Evaluate(boardCtx.BoardID, nodeID)

	marker.SetSuccess(true)
	c.JSON(http.StatusAccepted, h.previewService.Status(boardCtx.BoardID, nodeID))
}

// GetBoardPreviews lists every published preview on the board
func (h *PreviewHandlers) GetBoardPreviews(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	published := h.cache.GetAllPublished(boardCtx.BoardID)
	out := make(map[string]gin.H, len(published))
	for nodeID, result := range published {
		out[nodeID] = gin.H{
			"imageRef":    result.ImageRef,
			"hasVisual":   result.HasVisual(),
			"publishedAt": result.PublishedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"previews": out, "count": len(out)})
}
