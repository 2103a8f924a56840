package middleware

import (
	"net/http"
	"strings"

	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a bearer token scoped to the request's board.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			c.Abort()
			return
		}

		tokenBoard, err := auth.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		boardCtx, exists := GetBoardContext(c)
		if !exists || boardCtx.BoardID != tokenBoard {
			c.JSON(http.StatusForbidden, gin.H{"error": "token not valid for this board"})
			c.Abort()
			return
		}

		c.Next()
	}
}
