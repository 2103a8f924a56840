// Package services provides application-level orchestration for board
// graph operations.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/messaging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

// Compositor flattens a payload into a preview image. The concrete
// implementation lives in the media package; tests substitute fakes.
type Compositor interface {
	Composite(ctx context.Context, boardID, nodeID string, payload *design.Payload, source *design.SourceBinary) (string, error)
}

// NodeState names the lifecycle stage of a preview node's controller.
type NodeState string

const (
	StateIdle          NodeState = "idle"
	StateMissingSource NodeState = "missing_source"
	StateRendering     NodeState = "rendering"
	StateReady         NodeState = "ready"
	StateFailed        NodeState = "failed"
)

// NodeStatus is the externally visible snapshot of a controller.
type NodeStatus struct {
	NodeID    string    `json:"nodeId"`
	State     NodeState `json:"state"`
	ImageRef  string    `json:"imageRef,omitempty"`
	Signature uint64    `json:"signature,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// nodeController tracks one preview node's render lifecycle. The
// inflight counter doubles as a liveness token: a composite result is
// discarded unless its token still matches, so superseded or torn-down
// renders never publish. Publishes carry a sequence number allocated
// under the lock at decision time; pubApplied records the newest
// sequence written to the registry, so a slower evaluation can never
// overwrite a fresher result.
type nodeController struct {
	mu         sync.Mutex
	state      NodeState
	lastSig    uint64
	hasSig     bool
	lastErr    error
	visualRef  string
	inflight   uint64
	cancel     context.CancelFunc
	closed     bool
	pubSeq     uint64
	pubApplied uint64
}

// nextPublishLocked allocates the next publish sequence number. Caller
// holds ctrl.mu.
func (ctrl *nodeController) nextPublishLocked() uint64 {
	ctrl.pubSeq++
	return ctrl.pubSeq
}

// PreviewService drives preview nodes: it resolves each node's inbound
// payload, decides whether a composite is needed, invokes the compositor
// asynchronously, and publishes results downstream last-write-wins.
type PreviewService struct {
	cache       *manager.Manager
	compositor  Compositor
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker

	mu          sync.Mutex
	controllers map[string]*nodeController // boardId:nodeId
}

// NewPreviewService creates the preview orchestration service.
func NewPreviewService(cache *manager.Manager, compositor Compositor, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PreviewService {
	return &PreviewService{
		cache:       cache,
		compositor:  compositor,
		broadcaster: broadcaster,
		logger:      logger,
		perfTracker: perfTracker,
		controllers: make(map[string]*nodeController),
	}
}

func controllerKey(boardID, nodeID string) string {
	return boardID + ":" + nodeID
}

func (s *PreviewService) controller(boardID, nodeID string) *nodeController {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := controllerKey(boardID, nodeID)
	ctrl, ok := s.controllers[key]
	if !ok {
		ctrl = &nodeController{state: StateIdle}
		s.controllers[key] = ctrl
	}
	return ctrl
}

// Evaluate re-resolves a preview node's input and advances its
// controller. Safe to call from any goroutine; concurrent evaluations
// of the same node serialize on the controller lock.
func (s *PreviewService) Evaluate(boardID, nodeID string) {
	marker := s.perfTracker.StartOperation("render:evaluate", boardID)
	defer marker.Complete()
	marker.AddMetadata("nodeId", nodeID)

	ctrl := s.controller(boardID, nodeID)
	ctrl.mu.Lock()

	if ctrl.closed {
		ctrl.mu.Unlock()
		marker.SetSuccess(true)
		return
	}

	// Resolution happens under the controller lock, so whichever
	// evaluation serializes later reads the registry state at least as
	// fresh as the registration that triggered it. A stale goroutine can
	// never act on a payload the registry has already superseded.
	edges := s.cache.GetEdges(boardID)
	payload, resolved := graph.ResolveInput(edges, nodeID, s.cache.PayloadView(boardID))

	if !resolved {
		// No inbound payload edge, or the source has published nothing.
		// The node goes quiet without publishing anything downstream.
		s.supersedeLocked(ctrl)
		ctrl.state = StateIdle
		ctrl.hasSig = false
		ctrl.lastErr = nil
		ctrl.visualRef = ""
		ctrl.mu.Unlock()

		s.logger.Render().Debug("Node idle, no resolvable input", "boardId", boardID, "nodeId", nodeID)
		marker.SetSuccess(true)
		return
	}

	sig := design.Signature(payload, s.cache.RenderVersion(boardID))

	binary, haveBinary := s.lookupBinary(boardID, payload)
	if !haveBinary {
		// Publish the payload with an empty visual exactly once per
		// signature so downstream still receives the data.
		if ctrl.state == StateMissingSource && ctrl.hasSig && ctrl.lastSig == sig {
			ctrl.mu.Unlock()
			marker.SetSuccess(true)
			return
		}
		s.supersedeLocked(ctrl)
		ctrl.state = StateMissingSource
		ctrl.lastSig = sig
		ctrl.hasSig = true
		ctrl.lastErr = fmt.Errorf("source binary %q not registered", payload.SourceID)
		ctrl.visualRef = ""
		seq := ctrl.nextPublishLocked()
		ctrl.mu.Unlock()

		s.logger.Render().Warn("Source binary missing, publishing without visual",
			"boardId", boardID, "nodeId", nodeID, "sourceId", payload.SourceID)
		s.publish(ctrl, seq, boardID, nodeID, "", payload)
		marker.SetSuccess(true)
		return
	}

	// Unchanged signature with a healthy controller is a no-op. Failed
	// and missing-source states retry despite the matching signature.
	if ctrl.hasSig && ctrl.lastSig == sig &&
		(ctrl.state == StateReady || ctrl.state == StateRendering) {
		ctrl.mu.Unlock()
		marker.SetSuccess(true)
		return
	}

	if ref, hit := s.cache.GetRender(boardID, sig); hit {
		s.supersedeLocked(ctrl)
		ctrl.state = StateReady
		ctrl.lastSig = sig
		ctrl.hasSig = true
		ctrl.lastErr = nil
		ctrl.visualRef = ref
		seq := ctrl.nextPublishLocked()
		ctrl.mu.Unlock()

		s.logger.Render().Debug("Render cache hit", "boardId", boardID, "nodeId", nodeID, "signature", sig)
		marker.AddMetadata("cacheHit", true)
		s.publish(ctrl, seq, boardID, nodeID, ref, payload)
		marker.SetSuccess(true)
		return
	}

	s.supersedeLocked(ctrl)
	token := ctrl.inflight
	ctx, cancel := context.WithTimeout(context.Background(), config.CompositorTime)
	ctrl.cancel = cancel
	ctrl.state = StateRendering
	ctrl.lastSig = sig
	ctrl.hasSig = true
	ctrl.lastErr = nil
	ctrl.mu.Unlock()

	s.logger.Render().Debug("Dispatching composite", "boardId", boardID, "nodeId", nodeID, "signature", sig)
	go s.composite(ctx, cancel, ctrl, token, boardID, nodeID, sig, payload, binary)
	marker.SetSuccess(true)
}

// supersedeLocked invalidates any inflight composite and cancels its
// context. Caller holds ctrl.mu.
func (s *PreviewService) supersedeLocked(ctrl *nodeController) {
	ctrl.inflight++
	if ctrl.cancel != nil {
		ctrl.cancel()
		ctrl.cancel = nil
	}
}

func (s *PreviewService) lookupBinary(boardID string, payload *design.Payload) (*design.SourceBinary, bool) {
	if payload.SourceID == "" {
		return nil, false
	}
	return s.cache.GetBinary(boardID, payload.SourceID)
}

// composite runs off the evaluation goroutine. Its result is applied
// only if the controller still expects this token.
func (s *PreviewService) composite(ctx context.Context, cancel context.CancelFunc, ctrl *nodeController, token uint64, boardID, nodeID string, sig uint64, payload *design.Payload, binary *design.SourceBinary) {
	defer cancel()

	marker := s.perfTracker.StartOperation("render:composite", boardID)
	defer marker.Complete()
	marker.AddMetadata("nodeId", nodeID)

	start := time.Now()
	ref, err := s.compositor.Composite(ctx, boardID, nodeID, payload, binary)

	ctrl.mu.Lock()
	if ctrl.closed || token != ctrl.inflight {
		ctrl.mu.Unlock()
		s.logger.Render().Debug("Discarding superseded composite result", "boardId", boardID, "nodeId", nodeID)
		marker.SetSuccess(true)
		return
	}

	if err != nil {
		ctrl.state = StateFailed
		ctrl.lastErr = err
		ctrl.visualRef = ""
		ctrl.cancel = nil
		seq := ctrl.nextPublishLocked()
		ctrl.mu.Unlock()

		s.logger.Render().Error("Composite failed", "boardId", boardID, "nodeId", nodeID, "error", err.Error())
		marker.SetError(err)
		s.publish(ctrl, seq, boardID, nodeID, "", payload)
		return
	}

	ctrl.state = StateReady
	ctrl.lastErr = nil
	ctrl.visualRef = ref
	ctrl.cancel = nil
	seq := ctrl.nextPublishLocked()
	ctrl.mu.Unlock()

	s.cache.SetRender(boardID, sig, nodeID, ref)
	s.logger.LogRenderOperation("composite", boardID, nodeID, time.Since(start), true)
	marker.SetSuccess(true)
	s.publish(ctrl, seq, boardID, nodeID, ref, payload)
}

// publish stores the result on the node's preview slot last-write-wins,
// notifies watching clients, and re-evaluates downstream nodes. Never
// called with a controller lock held. The registry write, the payload
// relay, and the broadcast happen under ctrl.mu in sequence order; a
// publish whose sequence is older than the last applied one is dropped,
// so interleaved evaluations cannot leave a stale generation as the
// published result. The downstream cascade runs outside the lock.
func (s *PreviewService) publish(ctrl *nodeController, seq uint64, boardID, nodeID, imageRef string, payload *design.Payload) {
	result := &design.RenderResult{
		ImageRef:    imageRef,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}

	ctrl.mu.Lock()
	if seq <= ctrl.pubApplied {
		ctrl.mu.Unlock()
		s.logger.Render().Debug("Dropping superseded publish", "boardId", boardID, "nodeId", nodeID)
		return
	}
	ctrl.pubApplied = seq

	s.cache.Publish(boardID, nodeID, graph.SlotPreview, result)

	// The relayed payload also lands on the node's own preview slot so
	// chained nodes can resolve it as their input.
	s.cache.RegisterPayload(boardID, nodeID, graph.SlotPreview, payload)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastRender(boardID, nodeID, imageRef, payload.GenerationID)
	}
	ctrl.mu.Unlock()

	for _, target := range graph.DownstreamTargets(s.cache.GetEdges(boardID), nodeID, graph.SlotPreview) {
		s.Evaluate(boardID, target)
	}
}

// EvaluateBoard re-evaluates every node on the board with a connected
// payload input.
func (s *PreviewService) EvaluateBoard(boardID string) {
	for _, nodeID := range graph.PayloadInputNodes(s.cache.GetEdges(boardID)) {
		s.Evaluate(boardID, nodeID)
	}
}

// CloseNode tears a controller down. Inflight composites finish but
// their results are discarded and nothing further is published.
func (s *PreviewService) CloseNode(boardID, nodeID string) {
	s.mu.Lock()
	key := controllerKey(boardID, nodeID)
	ctrl, ok := s.controllers[key]
	if ok {
		delete(s.controllers, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	ctrl.mu.Lock()
	ctrl.closed = true
	s.supersedeLocked(ctrl)
	ctrl.mu.Unlock()

	s.logger.Render().Debug("Node controller closed", "boardId", boardID, "nodeId", nodeID)
}

// CloseBoard tears down every controller belonging to a board.
func (s *PreviewService) CloseBoard(boardID string) {
	prefix := boardID + ":"

	s.mu.Lock()
	var closing []*nodeController
	for key, ctrl := range s.controllers {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			closing = append(closing, ctrl)
			delete(s.controllers, key)
		}
	}
	s.mu.Unlock()

	for _, ctrl := range closing {
		ctrl.mu.Lock()
		ctrl.closed = true
		s.supersedeLocked(ctrl)
		ctrl.mu.Unlock()
	}
}

// Status snapshots a node's controller for inspection endpoints.
func (s *PreviewService) Status(boardID, nodeID string) NodeStatus {
	s.mu.Lock()
	ctrl, ok := s.controllers[controllerKey(boardID, nodeID)]
	s.mu.Unlock()

	status := NodeStatus{NodeID: nodeID, State: StateIdle}
	if !ok {
		return status
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	status.State = ctrl.state
	status.ImageRef = ctrl.visualRef
	if ctrl.hasSig {
		status.Signature = ctrl.lastSig
	}
	if ctrl.lastErr != nil {
		status.Error = ctrl.lastErr.Error()
	}
	return status
}
