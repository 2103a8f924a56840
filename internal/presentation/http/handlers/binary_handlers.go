package handlers

import (
	"net/http"
	"time"

	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// UploadBinaryRequest represents the request body for base64 source uploads
type UploadBinaryRequest struct {
	SourceID string `json:"sourceId"`
	FileName string `json:"fileName" binding:"required"`
	Data     string `json:"data" binding:"required"`
}

// BinaryHandlers contains source binary upload handlers
type BinaryHandlers struct {
	binaryService *services.BinaryService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewBinaryHandlers creates binary handlers with injected dependencies
func NewBinaryHandlers(binaryService *services.BinaryService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *BinaryHandlers {
	return &BinaryHandlers{
		binaryService: binaryService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// PostBinary uploads a base64 source binary
func (h *BinaryHandlers) PostBinary(c *gin.Context) {
	start := time.Now()
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("upload_binary_request", boardCtx.BoardID)
	defer marker.Complete()

	var req UploadBinaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	binary, err := h.binaryService.UploadBase64(boardCtx.BoardID, req.SourceID, req.FileName, req.Data)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.logger.Board().Info("Binary upload request completed", "boardId", boardCtx.BoardID, "sourceId", binary.ID, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{
		"sourceId":    binary.ID,
		"contentType": binary.ContentType,
		"fileName":    binary.FileName,
	})
}

// GetBinary returns a registered binary's metadata
func (h *BinaryHandlers) GetBinary(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	binary, ok := h.binaryService.Get(boardCtx.BoardID, c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "source binary not found"})
		return
	}

	c.JSON(http.StatusOK, binary)
}
