package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// CreateShareRequest represents the request body for creating share links
type CreateShareRequest struct {
	NodeID   string `json:"nodeId" binding:"required"`
	Email    string `json:"email"`
	Message  string `json:"message"`
	TTLHours int    `json:"ttlHours"`
}

// ShareHandlers contains preview share link handlers
type ShareHandlers struct {
	shareService *services.ShareService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewShareHandlers creates share handlers with injected dependencies
func NewShareHandlers(shareService *services.ShareService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ShareHandlers {
	return &ShareHandlers{
		shareService: shareService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// PostShare creates a share link for a node's published preview
func (h *ShareHandlers) PostShare(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("create_share_request", boardCtx.BoardID)
	defer marker.Complete()

	var req CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s", scheme, c.Request.Host)

	link, err := h.shareService.CreateLink(boardCtx.BoardID, req.NodeID, req.Email, req.Message, baseURL, ttl)
	if err != nil {
		marker.SetError(err)
		status := http.StatusUnprocessableEntity
		if link != nil {
			// Link exists but email delivery failed.
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, link)
}

// GetShared resolves a share token and redirects to the preview image
func (h *ShareHandlers) GetShared(c *gin.Context) {
	imageRef, err := h.shareService.Resolve(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, imageRef)
}
