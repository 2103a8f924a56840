package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

func boardRouter(cache *manager.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BoardMiddleware(cache))
	r.GET("/ping", func(c *gin.Context) {
		boardCtx, ok := GetBoardContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"boardId": boardCtx.BoardID})
	})
	return r
}

func ping(r *gin.Engine, boardID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if boardID != "" {
		req.Header.Set("X-Board-ID", boardID)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestBoardMiddlewareRequiresHeader(t *testing.T) {
	r := boardRouter(manager.NewManager(nil))
	assert.Equal(t, http.StatusBadRequest, ping(r, "").Code)
}

func TestBoardMiddlewareInitializesBoard(t *testing.T) {
	cache := manager.NewManager(nil)
	r := boardRouter(cache)

	w := ping(r, "board-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, cache.HasBoard("board-1"))
}

func TestBoardMiddlewareEnforcesCapacity(t *testing.T) {
	prev := config.MaxBoards
	config.MaxBoards = 1
	defer func() { config.MaxBoards = prev }()

	cache := manager.NewManager(nil)
	cache.InitializeBoard("board-1")
	r := boardRouter(cache)

	// A known board still passes at capacity.
	assert.Equal(t, http.StatusOK, ping(r, "board-1").Code)

	// A new board is turned away until capacity frees up.
	assert.Equal(t, http.StatusServiceUnavailable, ping(r, "board-2").Code)
	assert.False(t, cache.HasBoard("board-2"))
}
