package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
)

type mapSource struct {
	polished map[string]*design.Payload
	raw      map[string]*design.Payload
}

func (m *mapSource) PolishedPayload(nodeID string, slot Slot) (*design.Payload, bool) {
	p, ok := m.polished[nodeID+"/"+string(slot)]
	return p, ok
}

func (m *mapSource) RawPayload(nodeID string, slot Slot) (*design.Payload, bool) {
	p, ok := m.raw[nodeID+"/"+string(slot)]
	return p, ok
}

func TestResolveInput(t *testing.T) {
	edges := []Edge{
		{SourceNode: "design-1", SourceSlot: SlotPreview, TargetNode: "preview-1", TargetSlot: SlotPayload},
	}

	t.Run("no inbound edge", func(t *testing.T) {
		src := &mapSource{}
		_, ok := ResolveInput(edges, "unwired", src)
		assert.False(t, ok)
	})

	t.Run("source published nothing", func(t *testing.T) {
		src := &mapSource{
			polished: map[string]*design.Payload{},
			raw:      map[string]*design.Payload{},
		}
		_, ok := ResolveInput(edges, "preview-1", src)
		assert.False(t, ok)
	})

	t.Run("raw fallback", func(t *testing.T) {
		raw := &design.Payload{GenerationID: "gen-raw"}
		src := &mapSource{
			polished: map[string]*design.Payload{},
			raw:      map[string]*design.Payload{"design-1/preview": raw},
		}
		p, ok := ResolveInput(edges, "preview-1", src)
		require.True(t, ok)
		assert.Equal(t, "gen-raw", p.GenerationID)
	})

	t.Run("polished wins over raw", func(t *testing.T) {
		raw := &design.Payload{GenerationID: "gen-raw"}
		polished := &design.Payload{GenerationID: "gen-polished", Polished: true}
		src := &mapSource{
			polished: map[string]*design.Payload{"design-1/preview": polished},
			raw:      map[string]*design.Payload{"design-1/preview": raw},
		}
		p, ok := ResolveInput(edges, "preview-1", src)
		require.True(t, ok)
		assert.Equal(t, "gen-polished", p.GenerationID)
	})

	t.Run("slot must match", func(t *testing.T) {
		raw := &design.Payload{GenerationID: "gen-raw"}
		src := &mapSource{
			polished: map[string]*design.Payload{},
			raw:      map[string]*design.Payload{"design-1/target": raw},
		}
		_, ok := ResolveInput(edges, "preview-1", src)
		assert.False(t, ok)
	})
}

func TestInboundPayloadEdge(t *testing.T) {
	edges := []Edge{
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "b", TargetSlot: SlotTarget},
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "b", TargetSlot: SlotPayload},
	}

	edge, ok := InboundPayloadEdge(edges, "b")
	require.True(t, ok)
	assert.Equal(t, SlotPayload, edge.TargetSlot)

	_, ok = InboundPayloadEdge(edges, "a")
	assert.False(t, ok)
}

func TestDownstreamTargets(t *testing.T) {
	edges := []Edge{
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "b", TargetSlot: SlotPayload},
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "c", TargetSlot: SlotPayload},
		{SourceNode: "a", SourceSlot: SlotTarget, TargetNode: "d", TargetSlot: SlotPayload},
	}

	assert.Equal(t, []string{"b", "c"}, DownstreamTargets(edges, "a", SlotPreview))
	assert.Equal(t, []string{"d"}, DownstreamTargets(edges, "a", SlotTarget))
	assert.Empty(t, DownstreamTargets(edges, "b", SlotPreview))
}

func TestPayloadInputNodes(t *testing.T) {
	edges := []Edge{
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "b", TargetSlot: SlotPayload},
		{SourceNode: "x", SourceSlot: SlotPreview, TargetNode: "b", TargetSlot: SlotPayload},
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "c", TargetSlot: SlotTarget},
		{SourceNode: "a", SourceSlot: SlotPreview, TargetNode: "d", TargetSlot: SlotPayload},
	}

	assert.Equal(t, []string{"b", "d"}, PayloadInputNodes(edges))
}
