// Package handlers provides HTTP handlers for board graph endpoints
package handlers

import (
	"net/http"
	"time"

	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterPayloadRequest represents the request body for payload registration
type RegisterPayloadRequest struct {
	NodeID  string          `json:"nodeId" binding:"required"`
	Slot    string          `json:"slot"`
	Payload *design.Payload `json:"payload" binding:"required"`
}

// SetEdgesRequest represents the request body for edge replacement
type SetEdgesRequest struct {
	Edges []graph.Edge `json:"edges"`
}

// GraphHandlers contains all graph mutation HTTP handlers
type GraphHandlers struct {
	graphService *services.GraphService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewGraphHandlers creates graph handlers with injected dependencies
func NewGraphHandlers(graphService *services.GraphService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *GraphHandlers {
	return &GraphHandlers{
		graphService: graphService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// PostPayload registers a payload on a node's output slot
func (h *GraphHandlers) PostPayload(c *gin.Context) {
	start := time.Now()
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("post_payload_request", boardCtx.BoardID)
	defer marker.Complete()

	var req RegisterPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	slot := graph.Slot(req.Slot)
	if slot == "" {
		slot = graph.SlotPayload
	}

	if err := h.graphService.RegisterPayload(boardCtx.BoardID, req.NodeID, slot, req.Payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Graph().Info("Payload registration request completed", "boardId", boardCtx.BoardID, "nodeId", req.NodeID, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"nodeId":       req.NodeID,
		"generationId": req.Payload.GenerationID,
	})
}

// DeleteNode unregisters a node and its payloads
func (h *GraphHandlers) DeleteNode(c *gin.Context) {
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

	marker := h.perfTracker.StartOperation("delete_node_request", boardCtx.BoardID)
	defer marker.Complete()

	h.graphService.UnregisterNode(boardCtx.BoardID, nodeID)

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"nodeId": nodeID, "removed": true})
}

// PutEdges replaces the board's edge list
func (h *GraphHandlers) PutEdges(c *gin.Context) {
	start := time.Now()
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("put_edges_request", boardCtx.BoardID)
	defer marker.Complete()

	var req SetEdgesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.graphService.SetEdges(boardCtx.BoardID, req.Edges); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Graph().Info("Edge replacement request completed", "boardId", boardCtx.BoardID, "count", len(req.Edges), "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"count": len(req.Edges)})
}

// GetEdges returns the board's current edge list
func (h *GraphHandlers) GetEdges(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	edges := h.graphService.GetEdges(boardCtx.BoardID)
	c.JSON(http.StatusOK, gin.H{"edges": edges, "count": len(edges)})
}

// PostRefresh bumps the board's render version and forces a re-render
func (h *GraphHandlers) PostRefresh(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("refresh_board_request", boardCtx.BoardID)
	defer marker.Complete()

	version := h.graphService.RefreshBoard(boardCtx.BoardID)

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"renderVersion": version})
}
