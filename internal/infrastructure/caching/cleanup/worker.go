// Package cleanup provides background worker
package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
)

// Worker evicts idle boards and purges stale render records in the
// background.
type Worker struct {
	cache   *manager.Manager
	config  *Config
	onEvict func(boardID string)
}

// NewWorker creates a new cleanup worker with injected configuration.
// onEvict runs after a board's caches are dropped so dependent state
// (render controllers, open streams) can be torn down; it may be nil.
func NewWorker(cache *manager.Manager, config *Config, onEvict func(boardID string)) *Worker {
	return &Worker{
		cache:   cache,
		config:  config,
		onEvict: onEvict,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	log.Printf("Cache cleanup worker started (interval: %v, verbose: %v)",
		w.config.CleanupInterval, w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache cleanup worker stopping...")
			return
		case <-ticker.C:
			w.performCleanup(ctx)
		}
	}
}

// performCleanup executes cleanup across all known boards
func (w *Worker) performCleanup(ctx context.Context) {
	start := time.Now()
	now := time.Now().UTC()

	if w.config.VerboseReporting {
		log.Println("=== PERIODIC CACHE CLEANUP ===")
		for _, boardID := range w.cache.GetAllBoardIDs() {
			log.Print(GenerateBoardReport(w.cache, boardID))
		}
	}

	var evicted, purged, trimmed int
	accessTimes := w.cache.LastAccessTimes()
	for boardID, lastAccess := range accessTimes {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if now.Sub(lastAccess) > w.config.BoardTimeout {
			w.cache.EvictBoard(boardID)
			if w.onEvict != nil {
				w.onEvict(boardID)
			}
			evicted++
			log.Printf("Evicted idle board %s (last access: %v)", boardID, lastAccess)
			continue
		}

		purged += w.cache.PurgeExpiredRenders(boardID, w.config.RenderCacheTTL)
		trimmed += w.cache.TrimPublished(boardID, w.config.PublishedMaxKeep)
	}

	duration := time.Since(start)
	if evicted > 0 || purged > 0 || trimmed > 0 {
		log.Printf("Cache cleanup finished: %d boards evicted, %d render records purged, %d published results trimmed in %v",
			evicted, purged, trimmed, duration)
	} else if w.config.VerboseReporting {
		log.Printf("Cache cleanup completed - nothing expired (%v)", duration)
	}
}
