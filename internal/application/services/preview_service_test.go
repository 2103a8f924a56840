package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
)

type fakeCompositor struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (f *fakeCompositor) Composite(ctx context.Context, boardID, nodeID string, payload *design.Payload, source *design.SourceBinary) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	err := f.err
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/media/%s/previews/%s-%d.webp", boardID, nodeID, n), nil
}

func (f *fakeCompositor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type broadcastEvent struct {
	boardID      string
	nodeID       string
	imageRef     string
	generationID string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (r *recordingBroadcaster) BroadcastRender(boardID, nodeID, imageRef, generationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastEvent{boardID, nodeID, imageRef, generationID})
}

func (r *recordingBroadcaster) snapshot() []broadcastEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcastEvent, len(r.events))
	copy(out, r.events)
	return out
}

func newTestService(t *testing.T, comp Compositor) (*PreviewService, *manager.Manager, *recordingBroadcaster) {
	t.Helper()

	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
	})
	require.NoError(t, err)

	cache := manager.NewManager(nil)
	broadcaster := &recordingBroadcaster{}
	svc := NewPreviewService(cache, comp, broadcaster, logger, performance.NewTracker(nil))
	return svc, cache, broadcaster
}

func wireBoard(cache *manager.Manager, boardID string) {
	cache.SetEdges(boardID, []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
	})
}

func testPayload(generationID string) *design.Payload {
	return &design.Payload{
		SourceID: "src-1",
		Layers: []*design.LayerNode{
			{ID: "l1", Kind: "image", W: 100, H: 80, Opacity: 1},
		},
		Metrics:      design.Metrics{Width: 100, Height: 80, LayerCount: 1},
		Scale:        1,
		GenerationID: generationID,
	}
}

func testBinary() *design.SourceBinary {
	return &design.SourceBinary{
		ID:          "src-1",
		FileName:    "src.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 0x50, 0x4e, 0x47},
		UploadedAt:  time.Now().UTC(),
	}
}

func TestEvaluateUnresolvedPublishesNothing(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")

	// Edge exists but design-1 has no registered payload.
	svc.Evaluate("board-1", "preview-1")

	assert.Equal(t, StateIdle, svc.Status("board-1", "preview-1").State)
	assert.Zero(t, fc.callCount())
	assert.Empty(t, broadcaster.snapshot())
	_, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	assert.False(t, ok)

	// A node with no inbound payload edge at all stays quiet too.
	svc.Evaluate("board-1", "unwired")
	assert.Equal(t, StateIdle, svc.Status("board-1", "unwired").State)
	assert.Empty(t, broadcaster.snapshot())
}

func TestEvaluateMissingSourcePublishesWithoutVisual(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))

	svc.Evaluate("board-1", "preview-1")

	status := svc.Status("board-1", "preview-1")
	assert.Equal(t, StateMissingSource, status.State)
	assert.Empty(t, status.ImageRef)
	assert.NotEmpty(t, status.Error)
	assert.Zero(t, fc.callCount())

	published, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.False(t, published.HasVisual())
	require.NotNil(t, published.Payload)
	assert.Equal(t, "gen-1", published.Payload.GenerationID)

	// Same signature re-evaluated does not publish a second time.
	svc.Evaluate("board-1", "preview-1")
	assert.Len(t, broadcaster.snapshot(), 1)

	// A new generation is a new signature and publishes again.
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-2"))
	svc.Evaluate("board-1", "preview-1")
	assert.Len(t, broadcaster.snapshot(), 2)
}

func TestEvaluateRendersAndPublishes(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")

	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)

	status := svc.Status("board-1", "preview-1")
	assert.NotEmpty(t, status.ImageRef)
	assert.Equal(t, 1, fc.callCount())

	published, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.True(t, published.HasVisual())
	assert.Equal(t, status.ImageRef, published.ImageRef)

	events := broadcaster.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "preview-1", events[0].nodeID)
	assert.Equal(t, status.ImageRef, events[0].imageRef)
	assert.Equal(t, "gen-1", events[0].generationID)

	// The successful render landed in the cache under its signature.
	sig := design.Signature(testPayload("gen-1"), cache.RenderVersion("board-1"))
	ref, ok := cache.GetRender("board-1", sig)
	require.True(t, ok)
	assert.Equal(t, status.ImageRef, ref)
}

func TestEvaluateUnchangedSignatureIsNoOp(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)

	svc.Evaluate("board-1", "preview-1")
	svc.Evaluate("board-1", "preview-1")

	assert.Equal(t, 1, fc.callCount())
	assert.Len(t, broadcaster.snapshot(), 1)
}

func TestEvaluateRenderCacheHitSkipsCompositor(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	sig := design.Signature(testPayload("gen-1"), cache.RenderVersion("board-1"))
	cache.SetRender("board-1", sig, "preview-1", "/media/board-1/previews/cached.webp")

	svc.Evaluate("board-1", "preview-1")

	status := svc.Status("board-1", "preview-1")
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, "/media/board-1/previews/cached.webp", status.ImageRef)
	assert.Zero(t, fc.callCount())

	events := broadcaster.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "/media/board-1/previews/cached.webp", events[0].imageRef)
}

func TestEvaluateFailureRetriesOnNextEvaluation(t *testing.T) {
	fc := &fakeCompositor{err: errors.New("decode failed")}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-1").State == StateFailed
	}, 2*time.Second, 5*time.Millisecond)

	status := svc.Status("board-1", "preview-1")
	assert.Contains(t, status.Error, "decode failed")
	assert.Empty(t, status.ImageRef)

	// The failure still propagated the payload downstream, without a visual.
	published, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.False(t, published.HasVisual())

	// An unchanged signature does not suppress the retry after failure.
	fc.mu.Lock()
	fc.err = nil
	fc.mu.Unlock()

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, fc.callCount())
	events := broadcaster.snapshot()
	require.Len(t, events, 2)
	assert.Empty(t, events[0].imageRef)
	assert.NotEmpty(t, events[1].imageRef)
}

func TestCloseNodeDiscardsInflightResult(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeCompositor{block: block}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		return fc.callCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	svc.CloseNode("board-1", "preview-1")
	close(block)

	// The composite finishes after teardown; its result must be dropped.
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, broadcaster.snapshot())
	_, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	assert.False(t, ok)
	assert.Equal(t, StateIdle, svc.Status("board-1", "preview-1").State)
}

func TestPublishDropsSupersededSequence(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")

	ctrl := svc.controller("board-1", "preview-1")
	ctrl.mu.Lock()
	older := ctrl.nextPublishLocked()
	newer := ctrl.nextPublishLocked()
	ctrl.mu.Unlock()

	// The newer sequence lands first; the slower writer must be dropped.
	svc.publish(ctrl, newer, "board-1", "preview-1", "/media/board-1/previews/new.webp", testPayload("gen-2"))
	svc.publish(ctrl, older, "board-1", "preview-1", "", testPayload("gen-1"))

	published, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "gen-2", published.Payload.GenerationID)
	assert.Equal(t, "/media/board-1/previews/new.webp", published.ImageRef)

	relayed, ok := cache.RawPayload("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "gen-2", relayed.GenerationID)

	events := broadcaster.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "gen-2", events[0].generationID)
}

func TestConcurrentEvaluationsKeepFreshestPayload(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, _ := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterBinary("board-1", testBinary())

	// Back-to-back registrations with an evaluation racing each one.
	var wg sync.WaitGroup
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Evaluate("board-1", "preview-1")
	}()

	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-2"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Evaluate("board-1", "preview-1")
	}()
	wg.Wait()

	require.Eventually(t, func() bool {
		published, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
		return ok && published.HasVisual() && published.Payload.GenerationID == "gen-2"
	}, 2*time.Second, 5*time.Millisecond)

	// Settled state must stay on the freshest generation.
	time.Sleep(50 * time.Millisecond)
	published, ok := cache.GetPublished("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "gen-2", published.Payload.GenerationID)
	assert.Equal(t, StateReady, svc.Status("board-1", "preview-1").State)
}

func TestPublishCascadesDownstream(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, broadcaster := newTestService(t, fc)

	cache.SetEdges("board-1", []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
		{SourceNode: "preview-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-2", TargetSlot: graph.SlotPayload},
	})
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")

	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-2").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, StateReady, svc.Status("board-1", "preview-1").State)

	published, ok := cache.GetPublished("board-1", "preview-2", graph.SlotPreview)
	require.True(t, ok)
	assert.True(t, published.HasVisual())

	nodes := make(map[string]bool)
	for _, event := range broadcaster.snapshot() {
		nodes[event.nodeID] = true
	}
	assert.True(t, nodes["preview-1"])
	assert.True(t, nodes["preview-2"])
}

func TestEvaluateBoardCoversPayloadInputs(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, _ := newTestService(t, fc)

	cache.SetEdges("board-1", []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-2", TargetSlot: graph.SlotPayload},
	})
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.EvaluateBoard("board-1")

	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-1").State == StateReady &&
			svc.Status("board-1", "preview-2").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseBoardTearsDownAllControllers(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeCompositor{block: block}
	svc, cache, broadcaster := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		return fc.callCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	svc.CloseBoard("board-1")
	close(block)
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, broadcaster.snapshot())
	assert.Equal(t, StateIdle, svc.Status("board-1", "preview-1").State)
}

func TestRefreshRenderVersionChangesSignature(t *testing.T) {
	fc := &fakeCompositor{}
	svc, cache, _ := newTestService(t, fc)
	wireBoard(cache, "board-1")
	cache.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1"))
	cache.RegisterBinary("board-1", testBinary())

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		return svc.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)
	firstSig := svc.Status("board-1", "preview-1").Signature

	cache.BumpRenderVersion("board-1")
	cache.InvalidateRenders("board-1")

	svc.Evaluate("board-1", "preview-1")
	require.Eventually(t, func() bool {
		s := svc.Status("board-1", "preview-1")
		return s.State == StateReady && s.Signature != firstSig
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, fc.callCount())
}
