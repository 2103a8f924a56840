package handlers

import (
	"net/http"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/database"
	"github.com/gin-gonic/gin"
)

// HealthHandlers contains liveness and metrics handlers
type HealthHandlers struct {
	cache       *manager.Manager
	db          *database.DB
	perfTracker *performance.Tracker
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(cache *manager.Manager, db *database.DB, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{
		cache:       cache,
		db:          db,
		perfTracker: perfTracker,
	}
}

// GetHealth reports service health
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	dbStatus := "ok"
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			dbStatus = err.Error()
		}
	} else {
		dbStatus = "disabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"cache":    h.cache.Health(),
		"database": dbStatus,
		"uptime":   h.perfTracker.Uptime().String(),
	})
}

// GetMetrics reports aggregated operation statistics
func (h *HealthHandlers) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"operations": h.perfTracker.GetStats(),
		"uptime":     h.perfTracker.Uptime().String(),
	})
}
