package services

import (
	"fmt"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/persistence/boards"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/security"
)

// GraphService mutates a board's graph: payload registration, edge
// replacement, and node removal. Every mutation triggers re-evaluation
// of the affected preview nodes.
type GraphService struct {
	cache       *manager.Manager
	previews    *PreviewService
	repo        *boards.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewGraphService creates the graph mutation service. repo may be nil
// when persistence is disabled.
func NewGraphService(cache *manager.Manager, previews *PreviewService, repo *boards.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *GraphService {
	return &GraphService{
		cache:       cache,
		previews:    previews,
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// RegisterPayload stores a payload on a node's output slot and
// re-evaluates downstream preview nodes. A missing generation id is
// assigned here so superseding writes are always distinguishable.
func (s *GraphService) RegisterPayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload) error {
	marker := s.perfTracker.StartOperation("graph:register_payload", boardID)
	defer marker.Complete()

	if payload == nil {
		err := fmt.Errorf("payload is required")
		marker.SetError(err)
		return err
	}
	if payload.GenerationID == "" {
		payload.GenerationID = security.GenerateULID()
	}

	if payload.Polished {
		s.cache.RegisterPolishedPayload(boardID, nodeID, slot, payload)
	} else {
		s.cache.RegisterPayload(boardID, nodeID, slot, payload)
	}

	if s.repo != nil {
		if err := s.repo.SavePayload(boardID, nodeID, slot, payload, payload.Polished); err != nil {
			s.logger.Graph().Error("Payload persistence failed", "error", err.Error(), "boardId", boardID, "nodeId", nodeID)
		}
	}

	s.logger.Graph().Info("Payload registered", "boardId", boardID, "nodeId", nodeID, "slot", slot,
		"generationId", payload.GenerationID, "polished", payload.Polished)

	s.reevaluateDownstream(boardID, nodeID, slot)
	marker.SetSuccess(true)
	return nil
}

// UnregisterNode removes a node's payloads and closes its preview
// controller. Downstream nodes re-evaluate and fall idle or resolve a
// different source.
func (s *GraphService) UnregisterNode(boardID, nodeID string) {
	marker := s.perfTracker.StartOperation("graph:unregister_node", boardID)
	defer marker.Complete()

	s.cache.UnregisterNode(boardID, nodeID)
	s.previews.CloseNode(boardID, nodeID)

	if s.repo != nil {
		if err := s.repo.DeleteNode(boardID, nodeID); err != nil {
			s.logger.Graph().Error("Node delete persistence failed", "error", err.Error(), "boardId", boardID, "nodeId", nodeID)
		}
	}

	s.logger.Graph().Info("Node unregistered", "boardId", boardID, "nodeId", nodeID)

	for _, slot := range []graph.Slot{graph.SlotPreview, graph.SlotPayload} {
		s.reevaluateDownstream(boardID, nodeID, slot)
	}
	marker.SetSuccess(true)
}

// SetEdges replaces the board's edge list and re-evaluates every node
// with a payload input.
func (s *GraphService) SetEdges(boardID string, edges []graph.Edge) error {
	marker := s.perfTracker.StartOperation("graph:set_edges", boardID)
	defer marker.Complete()

	s.cache.SetEdges(boardID, edges)

	if s.repo != nil {
		if err := s.repo.SaveEdges(boardID, edges); err != nil {
			s.logger.Graph().Error("Edge persistence failed", "error", err.Error(), "boardId", boardID)
		}
	}

	s.logger.Graph().Info("Edges replaced", "boardId", boardID, "count", len(edges))

	s.previews.EvaluateBoard(boardID)
	marker.SetSuccess(true)
	return nil
}

// GetEdges returns the board's current edge list.
func (s *GraphService) GetEdges(boardID string) []graph.Edge {
	return s.cache.GetEdges(boardID)
}

// RefreshBoard bumps the board's render version, retiring every cached
// signature, and forces a full re-render.
func (s *GraphService) RefreshBoard(boardID string) uint64 {
	marker := s.perfTracker.StartOperation("graph:refresh_board", boardID)
	defer marker.Complete()

	version := s.cache.BumpRenderVersion(boardID)
	s.cache.InvalidateRenders(boardID)

	s.logger.Graph().Info("Board refresh forced", "boardId", boardID, "renderVersion", version)

	s.previews.EvaluateBoard(boardID)
	marker.SetSuccess(true)
	return version
}

// reevaluateDownstream re-evaluates the targets fed by a node's slot.
func (s *GraphService) reevaluateDownstream(boardID, nodeID string, slot graph.Slot) {
	for _, target := range graph.DownstreamTargets(s.cache.GetEdges(boardID), nodeID, slot) {
		s.previews.Evaluate(boardID, target)
	}
}
