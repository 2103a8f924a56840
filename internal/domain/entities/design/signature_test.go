package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func basePayload() *Payload {
	return &Payload{
		SourceID: "src-1",
		Layers: []*LayerNode{
			{ID: "l1", Kind: "image", X: 0, Y: 0, W: 100, H: 80, Opacity: 1},
			{ID: "l2", Kind: "frame", X: 10, Y: 10, W: 50, H: 40, Children: []*LayerNode{
				{ID: "l3", Kind: "shape", X: 2, Y: 2, W: 10, H: 10, Fill: "#ff0000"},
			}},
		},
		Metrics:      Metrics{Width: 100, Height: 80, LayerCount: 3},
		Scale:        2,
		GenerationID: "gen-1",
	}
}

func TestSignatureDeterministic(t *testing.T) {
	assert.Equal(t, Signature(basePayload(), 1), Signature(basePayload(), 1))
}

func TestSignatureSensitivity(t *testing.T) {
	base := Signature(basePayload(), 1)

	t.Run("render version", func(t *testing.T) {
		assert.NotEqual(t, base, Signature(basePayload(), 2))
	})

	t.Run("generation id", func(t *testing.T) {
		p := basePayload()
		p.GenerationID = "gen-2"
		assert.NotEqual(t, base, Signature(p, 1))
	})

	t.Run("metrics", func(t *testing.T) {
		p := basePayload()
		p.Metrics.Width = 101
		assert.NotEqual(t, base, Signature(p, 1))
	})

	t.Run("scale", func(t *testing.T) {
		p := basePayload()
		p.Scale = 1
		assert.NotEqual(t, base, Signature(p, 1))
	})

	t.Run("top level layer geometry", func(t *testing.T) {
		p := basePayload()
		p.Layers[0].W = 99
		assert.NotEqual(t, base, Signature(p, 1))
	})

	t.Run("nested layer fill", func(t *testing.T) {
		p := basePayload()
		p.Layers[1].Children[0].Fill = "#00ff00"
		assert.NotEqual(t, base, Signature(p, 1))
	})

	t.Run("layer order", func(t *testing.T) {
		p := basePayload()
		p.Layers[0], p.Layers[1] = p.Layers[1], p.Layers[0]
		assert.NotEqual(t, base, Signature(p, 1))
	})
}

func TestRenderResultHasVisual(t *testing.T) {
	assert.False(t, (&RenderResult{}).HasVisual())
	assert.False(t, (*RenderResult)(nil).HasVisual())
	assert.True(t, (&RenderResult{ImageRef: "/media/b/previews/x.webp"}).HasVisual())
}
