package services

import (
	"fmt"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/media"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/boards"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/security"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

// BinaryService handles source binary uploads. Binary arrival wakes
// every preview node, since a node stuck on a missing source has no
// other signal to retry on.
type BinaryService struct {
	cache       *manager.Manager
	previews    *PreviewService
	repo        *boards.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewBinaryService creates the binary upload service. repo may be nil
// when persistence is disabled.
func NewBinaryService(cache *manager.Manager, previews *PreviewService, repo *boards.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *BinaryService {
	return &BinaryService{
		cache:       cache,
		previews:    previews,
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// UploadBase64 decodes a base64 data-URI upload, writes it to the
// board's media directory, and registers it as a source binary.
func (s *BinaryService) UploadBase64(boardID, sourceID, fileName, data string) (*design.SourceBinary, error) {
	marker := s.perfTracker.StartOperation("binary:upload", boardID)
	defer marker.Complete()

	if sourceID == "" {
		sourceID = security.GenerateULID()
	}

	decoded, contentType, path, err := media.ProcessBase64Binary(config.MediaBasePath, boardID, data, sourceID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to process binary upload: %w", err)
	}

	binary := &design.SourceBinary{
		ID:          sourceID,
		FileName:    fileName,
		ContentType: contentType,
		Path:        path,
		Data:        decoded,
		UploadedAt:  time.Now().UTC(),
	}

	s.cache.RegisterBinary(boardID, binary)

	if s.repo != nil {
		if err := s.repo.SaveBinaryMeta(boardID, binary); err != nil {
			s.logger.Board().Error("Binary meta persistence failed", "error", err.Error(), "boardId", boardID, "sourceId", sourceID)
		}
	}

	s.logger.Board().Info("Source binary registered", "boardId", boardID, "sourceId", sourceID,
		"contentType", contentType, "bytes", len(decoded))

	// Nodes in missing_source state retry now that the binary exists.
	s.previews.EvaluateBoard(boardID)

	marker.AddMetadata("bytes", len(decoded))
	marker.SetSuccess(true)
	return binary, nil
}

// Get returns a registered binary's metadata.
func (s *BinaryService) Get(boardID, sourceID string) (*design.SourceBinary, bool) {
	return s.cache.GetBinary(boardID, sourceID)
}
