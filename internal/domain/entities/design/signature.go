package design

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// Signature derives the render cache signature for a payload under a
// given board render version. Two evaluations with equal signatures are
// guaranteed to describe the same composition: metrics, layer tree,
// generation id, and the board-wide render version all feed the hash.
// Bumping the render version therefore invalidates every node at once.
func Signature(p *Payload, renderVersion uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeU64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeF64 := func(v float64) {
		writeU64(math.Float64bits(v))
	}
	writeStr := func(s string) {
		writeU64(uint64(len(s)))
		h.Write([]byte(s))
	}

	writeU64(renderVersion)
	writeStr(p.GenerationID)
	writeStr(p.SourceID)
	writeF64(p.Scale)

	writeF64(p.Metrics.Width)
	writeF64(p.Metrics.Height)
	writeF64(p.Metrics.ContentWidth)
	writeF64(p.Metrics.ContentHeight)
	writeU64(uint64(p.Metrics.LayerCount))

	var walk func(layers []*LayerNode)
	walk = func(layers []*LayerNode) {
		writeU64(uint64(len(layers)))
		for _, l := range layers {
			writeStr(l.ID)
			writeStr(l.Kind)
			writeF64(l.X)
			writeF64(l.Y)
			writeF64(l.W)
			writeF64(l.H)
			writeF64(l.Opacity)
			writeStr(l.Fill)
			if l.SourceRegion != nil {
				writeU64(1)
				writeF64(l.SourceRegion.X)
				writeF64(l.SourceRegion.Y)
				writeF64(l.SourceRegion.W)
				writeF64(l.SourceRegion.H)
			} else {
				writeU64(0)
			}
			walk(l.Children)
		}
	}
	walk(p.Layers)

	return h.Sum64()
}
