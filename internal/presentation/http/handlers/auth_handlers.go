package handlers

import (
	"net/http"

	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthHandlers contains authentication HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin exchanges the admin password for a board-scoped editor token
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("login_request", boardCtx.BoardID)
	defer marker.Complete()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := h.authService.Login(boardCtx.BoardID, req.Password)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetAuthStatus reports whether the presented token is valid for the board
func (h *AuthHandlers) GetAuthStatus(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"boardId": boardCtx.BoardID, "authenticated": true})
}
