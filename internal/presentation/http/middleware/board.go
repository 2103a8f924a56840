// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// BoardContext represents the board scope of a request
type BoardContext struct {
	BoardID string
}

// BoardMiddleware extracts the board scope from the X-Board-ID header
// and makes sure its caches exist. A request for an unknown board is
// rejected when the instance is already at its board capacity.
func BoardMiddleware(cache *manager.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardID := c.GetHeader("X-Board-ID")
		if boardID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Board-ID header is required"})
			c.Abort()
			return
		}

		if !cache.HasBoard(boardID) && len(cache.GetAllBoardIDs()) >= config.MaxBoards {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "board capacity reached"})
			c.Abort()
			return
		}

		cache.InitializeBoard(boardID)

		c.Set("board", &BoardContext{BoardID: boardID})

		c.Next()
	}
}

// GetBoardContext retrieves the board context from gin context
func GetBoardContext(c *gin.Context) (*BoardContext, bool) {
	boardCtx, exists := c.Get("board")
	if !exists {
		return nil, false
	}

	ctx, ok := boardCtx.(*BoardContext)
	return ctx, ok
}
