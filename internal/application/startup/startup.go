// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FableForge/canvasflow-go/internal/application/container"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/cleanup"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/email"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/boards"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/database"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/server"
	"github.com/FableForge/canvasflow-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete board-graph startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  ██████ ▄▄▄▄▄ ▄▄ ▄▄ ▄▄ ▄▄ ▄▄▄▄ ▄▄▄▄ ▄▄▄▄▄ ▄▄   ▄▄▄▄ ▄▄ ▄▄ ▄▄
 ██      ██▄▄█ ██▄██ ██ ██ ██▄█ ██▄▄ ██▄▄  ██   ██ ██ ██▄██▄██
 ██      ██ ██ ██ ██ ██▄██ ██ █ ▄▄██ ██    ██▄▄ ██▄██ ██▄██▄██
  ██████ ▀▀ ▀▀ ▀▀ ▀▀  ▀▀▀  ▀▀▀▀ ▀▀▀▀ ▀▀    ▀▀▀▀  ▀▀▀   ▀▀ ▀▀
` + "\033[97m" + `
  made by FableForge
` + "\033[0m")

	// Step 1: Create the channeled logger
	log.Println("Initializing logging...")
	loggerConfig := logging.DefaultLoggerConfig()
	loggerConfig.LogDirectory = config.LogDirectory
	logger, err := logging.NewChanneledLogger(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized", "directory", config.LogDirectory)

	// Step 2: Initialize cache system
	logger.Startup().Info("Initializing cache system...")
	cacheManager := manager.NewManager(logger)

	// Step 3: Connect to the database and ensure the board schema
	logger.Startup().Info("Connecting to database...", "driver", config.DBDriver)
	db, err := database.NewConnectionWithLogger(config.DBDriver, config.DBURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)

	repo := boards.NewRepository(db.DB, cacheManager, logger)
	if err := repo.EnsureSchema(); err != nil {
		return fmt.Errorf("failed to ensure board schema: %w", err)
	}

	// Step 4: Hydrate persisted boards into the cache
	logger.Startup().Info("Hydrating persisted boards...")
	boardIDs, err := repo.LoadBoardIDs()
	if err != nil {
		return fmt.Errorf("failed to list persisted boards: %w", err)
	}
	for _, boardID := range boardIDs {
		cacheManager.InitializeBoard(boardID)
		if err := repo.HydrateBoard(boardID); err != nil {
			logger.Startup().Error("Board hydration failed", "error", err.Error(), "boardId", boardID)
		}
	}
	logger.Startup().Info("Board hydration complete", "boards", len(boardIDs))

	// Step 5: Initialize email service (optional)
	emailSvc, err := email.NewService()
	if err != nil {
		logger.Startup().Warn("Email service unavailable, share emails disabled", "reason", err.Error())
		emailSvc = nil
	}

	// Step 6: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer := container.NewContainer(cacheManager, db, repo, emailSvc, logger)
	logger.Startup().Info("Singleton application services initialized via container")

	// Step 7: Re-evaluate hydrated boards so previews come back online
	for _, boardID := range boardIDs {
		appContainer.PreviewService.EvaluateBoard(boardID)
	}

	// Step 8: Start the editor hub
	logger.Startup().Info("Starting editor hub...")
	go appContainer.EditorHub.Run()

	// Step 9: Start background cleanup worker
	logger.Startup().Info("Starting background cleanup worker...")
	cleanupConfig := cleanup.NewConfig()
	cleanupWorker := cleanup.NewWorker(cacheManager, cleanupConfig, func(boardID string) {
		appContainer.PreviewService.CloseBoard(boardID)
		appContainer.ShareService.DropBoard(boardID)
	})
	go cleanupWorker.Start(ctx)

	// Step 10: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	totalStartupTime := time.Since(start)
	logger.Startup().Info("Application startup complete",
		"totalDuration", totalStartupTime,
		"hydratedBoards", len(boardIDs),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing database...")
	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	} else {
		logger.Shutdown().Info("Database closed successfully")
	}

	elapsed := time.Since(start)
	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", elapsed,
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
