package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FableForge/canvasflow-go/internal/domain/graph"
)

func newTestGraphService(t *testing.T, fc *fakeCompositor) (*GraphService, *PreviewService, *recordingBroadcaster) {
	t.Helper()

	previews, cache, broadcaster := newTestService(t, fc)
	svc := NewGraphService(cache, previews, nil, previews.logger, previews.perfTracker)
	return svc, previews, broadcaster
}

func TestRegisterPayloadAssignsGenerationID(t *testing.T) {
	svc, _, _ := newTestGraphService(t, &fakeCompositor{})

	payload := testPayload("")
	require.NoError(t, svc.RegisterPayload("board-1", "design-1", graph.SlotPreview, payload))
	assert.NotEmpty(t, payload.GenerationID)

	got, ok := svc.cache.RawPayload("board-1", "design-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, payload.GenerationID, got.GenerationID)

	assert.Error(t, svc.RegisterPayload("board-1", "design-1", graph.SlotPreview, nil))
}

func TestRegisterPayloadRoutesPolished(t *testing.T) {
	svc, _, _ := newTestGraphService(t, &fakeCompositor{})

	polished := testPayload("gen-polished")
	polished.Polished = true
	require.NoError(t, svc.RegisterPayload("board-1", "design-1", graph.SlotPreview, polished))

	_, ok := svc.cache.RawPayload("board-1", "design-1", graph.SlotPreview)
	assert.False(t, ok)
	got, ok := svc.cache.PolishedPayload("board-1", "design-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "gen-polished", got.GenerationID)
}

func TestRegisterPayloadWakesDownstream(t *testing.T) {
	fc := &fakeCompositor{}
	svc, previews, _ := newTestGraphService(t, fc)

	require.NoError(t, svc.SetEdges("board-1", []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
	}))
	svc.cache.RegisterBinary("board-1", testBinary())

	require.NoError(t, svc.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1")))

	require.Eventually(t, func() bool {
		return previews.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fc.callCount())
}

func TestUnregisterNodeIdlesDownstream(t *testing.T) {
	fc := &fakeCompositor{}
	svc, previews, _ := newTestGraphService(t, fc)

	require.NoError(t, svc.SetEdges("board-1", []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
	}))
	svc.cache.RegisterBinary("board-1", testBinary())
	require.NoError(t, svc.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1")))

	require.Eventually(t, func() bool {
		return previews.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)

	svc.UnregisterNode("board-1", "design-1")

	assert.Equal(t, StateIdle, previews.Status("board-1", "preview-1").State)
	_, ok := svc.cache.RawPayload("board-1", "design-1", graph.SlotPreview)
	assert.False(t, ok)
}

func TestRefreshBoardRerenders(t *testing.T) {
	fc := &fakeCompositor{}
	svc, previews, _ := newTestGraphService(t, fc)

	require.NoError(t, svc.SetEdges("board-1", []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
	}))
	svc.cache.RegisterBinary("board-1", testBinary())
	require.NoError(t, svc.RegisterPayload("board-1", "design-1", graph.SlotPreview, testPayload("gen-1")))

	require.Eventually(t, func() bool {
		return previews.Status("board-1", "preview-1").State == StateReady
	}, 2*time.Second, 5*time.Millisecond)
	firstSig := previews.Status("board-1", "preview-1").Signature

	before := svc.cache.RenderVersion("board-1")
	version := svc.RefreshBoard("board-1")
	assert.Equal(t, before+1, version)

	require.Eventually(t, func() bool {
		s := previews.Status("board-1", "preview-1")
		return s.State == StateReady && s.Signature != firstSig
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, fc.callCount())
}
