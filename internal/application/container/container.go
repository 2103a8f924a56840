// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/FableForge/canvasflow-go/internal/application/services"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/email"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/media"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/messaging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/boards"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/database"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services (stateful singletons)
	PreviewService *services.PreviewService
	GraphService   *services.GraphService
	BinaryService  *services.BinaryService
	AuthService    *services.AuthService
	ShareService   *services.ShareService

	// Infrastructure Dependencies
	CacheManager *manager.Manager
	DB           *database.DB
	Repository   *boards.Repository
	Broadcaster  *messaging.SSEBroadcaster
	EditorHub    *messaging.EditorHub
	Logger       *logging.ChanneledLogger
	PerfTracker  *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(cacheManager *manager.Manager, db *database.DB, repo *boards.Repository, emailSvc email.Service, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())
	broadcaster := messaging.NewSSEBroadcaster(logger)
	editorHub := messaging.NewEditorHub(cacheManager)
	compositor := media.NewCompositor(config.MediaBasePath, config.RenderQuality, logger)

	previewService := services.NewPreviewService(cacheManager, compositor, broadcaster, logger, perfTracker)

	return &Container{
		PreviewService: previewService,
		GraphService:   services.NewGraphService(cacheManager, previewService, repo, logger, perfTracker),
		BinaryService:  services.NewBinaryService(cacheManager, previewService, repo, logger, perfTracker),
		AuthService:    services.NewAuthService(logger),
		ShareService:   services.NewShareService(cacheManager, emailSvc, logger),

		CacheManager: cacheManager,
		DB:           db,
		Repository:   repo,
		Broadcaster:  broadcaster,
		EditorHub:    editorHub,
		Logger:       logger,
		PerfTracker:  perfTracker,
	}
}
