package manager

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
)

func TestPayloadRegistries(t *testing.T) {
	m := NewManager(nil)

	raw := &design.Payload{GenerationID: "gen-1"}
	m.RegisterPayload("board-1", "design-1", graph.SlotPreview, raw)

	got, ok := m.RawPayload("board-1", "design-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "gen-1", got.GenerationID)

	_, ok = m.PolishedPayload("board-1", "design-1", graph.SlotPreview)
	assert.False(t, ok)

	polished := &design.Payload{GenerationID: "gen-2", Polished: true}
	m.RegisterPolishedPayload("board-1", "design-1", graph.SlotPreview, polished)
	got, ok = m.PolishedPayload("board-1", "design-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "gen-2", got.GenerationID)

	// Board isolation
	_, ok = m.RawPayload("board-2", "design-1", graph.SlotPreview)
	assert.False(t, ok)

	m.UnregisterNode("board-1", "design-1")
	_, ok = m.RawPayload("board-1", "design-1", graph.SlotPreview)
	assert.False(t, ok)
	_, ok = m.PolishedPayload("board-1", "design-1", graph.SlotPreview)
	assert.False(t, ok)
}

func TestPayloadViewPrecedence(t *testing.T) {
	m := NewManager(nil)

	m.RegisterPayload("board-1", "design-1", graph.SlotPreview, &design.Payload{GenerationID: "raw"})
	m.RegisterPolishedPayload("board-1", "design-1", graph.SlotPreview, &design.Payload{GenerationID: "polished"})

	edges := []graph.Edge{
		{SourceNode: "design-1", SourceSlot: graph.SlotPreview, TargetNode: "preview-1", TargetSlot: graph.SlotPayload},
	}

	p, ok := graph.ResolveInput(edges, "preview-1", m.PayloadView("board-1"))
	require.True(t, ok)
	assert.Equal(t, "polished", p.GenerationID)
}

func TestPublishLastWriteWins(t *testing.T) {
	m := NewManager(nil)

	m.Publish("board-1", "preview-1", graph.SlotPreview, &design.RenderResult{ImageRef: "first"})
	m.Publish("board-1", "preview-1", graph.SlotPreview, &design.RenderResult{ImageRef: "second"})

	got, ok := m.GetPublished("board-1", "preview-1", graph.SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "second", got.ImageRef)

	all := m.GetAllPublished("board-1")
	require.Len(t, all, 1)
	assert.Equal(t, "second", all["preview-1"].ImageRef)
}

func TestRenderCache(t *testing.T) {
	m := NewManager(nil)

	_, ok := m.GetRender("board-1", 42)
	assert.False(t, ok)

	m.SetRender("board-1", 42, "preview-1", "/media/board-1/previews/a.webp")
	ref, ok := m.GetRender("board-1", 42)
	require.True(t, ok)
	assert.Equal(t, "/media/board-1/previews/a.webp", ref)

	// Signature keyed, board isolated
	_, ok = m.GetRender("board-1", 43)
	assert.False(t, ok)
	_, ok = m.GetRender("board-2", 42)
	assert.False(t, ok)

	m.InvalidateRenders("board-1")
	_, ok = m.GetRender("board-1", 42)
	assert.False(t, ok)
}

func TestRenderVersion(t *testing.T) {
	m := NewManager(nil)
	m.InitializeBoard("board-1")

	v0 := m.RenderVersion("board-1")
	v1 := m.BumpRenderVersion("board-1")
	assert.Equal(t, v0+1, v1)
	assert.Equal(t, v1, m.RenderVersion("board-1"))
}

func TestEvictBoard(t *testing.T) {
	m := NewManager(nil)

	m.RegisterPayload("board-1", "design-1", graph.SlotPreview, &design.Payload{GenerationID: "gen"})
	m.SetRender("board-1", 7, "preview-1", "ref")

	times := m.LastAccessTimes()
	require.Contains(t, times, "board-1")
	assert.WithinDuration(t, time.Now().UTC(), times["board-1"], time.Minute)

	m.EvictBoard("board-1")

	_, ok := m.RawPayload("board-1", "design-1", graph.SlotPreview)
	assert.False(t, ok)
	_, ok = m.GetRender("board-1", 7)
	assert.False(t, ok)
	assert.NotContains(t, m.LastAccessTimes(), "board-1")
}

func TestTrimPublished(t *testing.T) {
	m := NewManager(nil)

	for i := 0; i < 5; i++ {
		m.Publish("board-1", fmt.Sprintf("preview-%d", i), graph.SlotPreview, &design.RenderResult{
			ImageRef:    "ref",
			PublishedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
		})
	}

	assert.Equal(t, 0, m.TrimPublished("board-1", 5))
	assert.Equal(t, 2, m.TrimPublished("board-1", 3))

	// Oldest results go first.
	_, ok := m.GetPublished("board-1", "preview-0", graph.SlotPreview)
	assert.False(t, ok)
	_, ok = m.GetPublished("board-1", "preview-1", graph.SlotPreview)
	assert.False(t, ok)
	_, ok = m.GetPublished("board-1", "preview-4", graph.SlotPreview)
	assert.True(t, ok)

	// A non-positive keep disables trimming.
	assert.Equal(t, 0, m.TrimPublished("board-1", 0))
}

func TestPurgeExpiredRenders(t *testing.T) {
	m := NewManager(nil)

	m.SetRender("board-1", 1, "preview-1", "ref-1")
	assert.Equal(t, 0, m.PurgeExpiredRenders("board-1", time.Hour))
	assert.Equal(t, 1, m.PurgeExpiredRenders("board-1", 0))

	_, ok := m.GetRender("board-1", 1)
	assert.False(t, ok)
}
