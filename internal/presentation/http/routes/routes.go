// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/FableForge/canvasflow-go/internal/application/container"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/handlers"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/FableForge/canvasflow-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Rendered previews and uploaded sources are served straight from disk.
	r.Static("/media", config.MediaBasePath)

	// Initialize handlers
	graphHandlers := handlers.NewGraphHandlers(container.GraphService, container.Logger, container.PerfTracker)
	previewHandlers := handlers.NewPreviewHandlers(container.PreviewService, container.CacheManager, container.Logger, container.PerfTracker)
	binaryHandlers := handlers.NewBinaryHandlers(container.BinaryService, container.Logger, container.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	shareHandlers := handlers.NewShareHandlers(container.ShareService, container.Logger, container.PerfTracker)
	streamHandlers := handlers.NewStreamHandlers(container.Broadcaster, container.EditorHub, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container.CacheManager, container.DB, container.PerfTracker)

	// Public, board-independent routes
	r.GET("/health", healthHandlers.GetHealth)
	r.GET("/metrics", healthHandlers.GetMetrics)
	r.GET("/share/:token", shareHandlers.GetShared)

	// Log streaming is a special case and can remain at top level
	r.GET("/logs/stream", streamHandlers.StreamLogs)

	// API routes with board middleware
	api := r.Group("/api/v1")
	api.Use(middleware.BoardMiddleware(container.CacheManager))
	{
		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.GET("/status", middleware.AuthMiddleware(container.AuthService), authHandlers.GetAuthStatus)
		}

		// Live update streams
		api.GET("/stream/sse", streamHandlers.GetSSE)
		api.GET("/stream/editor", streamHandlers.GetEditorWS)

		// Graph mutation endpoints (editor token required)
		graph := api.Group("/graph")
		graph.Use(middleware.AuthMiddleware(container.AuthService))
		{
			graph.POST("/payloads", graphHandlers.PostPayload)
			graph.DELETE("/nodes/:id", graphHandlers.DeleteNode)
			graph.PUT("/edges", graphHandlers.PutEdges)
			graph.GET("/edges", graphHandlers.GetEdges)
			graph.POST("/refresh", graphHandlers.PostRefresh)
		}

		// Source binaries (editor token required)
		binaries := api.Group("/binaries")
		binaries.Use(middleware.AuthMiddleware(container.AuthService))
		{
			binaries.POST("", binaryHandlers.PostBinary)
			binaries.GET("/:id", binaryHandlers.GetBinary)
		}

		// Preview inspection (read-only, public within the board)
		previews := api.Group("/previews")
		{
			previews.GET("", previewHandlers.GetBoardPreviews)
			previews.GET("/:id", previewHandlers.GetPublished)
			previews.GET("/:id/status", previewHandlers.GetNodeStatus)
			previews.POST("/:id/evaluate", middleware.AuthMiddleware(container.AuthService), previewHandlers.PostEvaluate)
		}

		// Share links (editor token required)
		api.POST("/share", middleware.AuthMiddleware(container.AuthService), shareHandlers.PostShare)
	}

	return r
}
