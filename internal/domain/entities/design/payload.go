// Package design defines the core entities flowing through a board's
// node graph: upstream design payloads, their backing source binaries,
// and the render results published downstream.
package design

import "time"

// Region describes a rectangular area inside a source binary, in source
// pixel coordinates.
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// LayerNode is one node of a payload's layer tree. Geometry is expressed
// in unscaled document coordinates; the compositor applies the payload
// scale factor when flattening.
type LayerNode struct {
	ID           string       `json:"id"`
	Kind         string       `json:"kind"` // "frame", "image", "shape", "text"
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	W            float64      `json:"w"`
	H            float64      `json:"h"`
	Opacity      float64      `json:"opacity"`
	Fill         string       `json:"fill,omitempty"`         // hex color for shape layers
	SourceRegion *Region      `json:"sourceRegion,omitempty"` // crop in the source binary for image layers
	Children     []*LayerNode `json:"children,omitempty"`
}

// Metrics carries the numeric measurements of a payload's composition.
type Metrics struct {
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	ContentWidth  float64 `json:"contentWidth"`
	ContentHeight float64 `json:"contentHeight"`
	LayerCount    int     `json:"layerCount"`
}

// Payload is the upstream data bundle describing a design composition to
// preview. It is immutable once registered; superseding versions carry a
// fresh GenerationID.
type Payload struct {
	SourceID        string       `json:"sourceId"`
	Layers          []*LayerNode `json:"layers"`
	Metrics         Metrics      `json:"metrics"`
	Scale           float64      `json:"scale"`
	GenerationID    string       `json:"generationId"`
	Polished        bool         `json:"polished"`
	TargetContainer string       `json:"targetContainer"`
}

// SourceBinary is an uploaded design binary backing one or more payloads.
// Bytes are held in memory for the life of the board; only metadata is
// ever persisted.
type SourceBinary struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Path        string    `json:"path"`
	Data        []byte    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// RenderResult is what a preview node publishes to its output slot: the
// originating payload plus the rendered image reference, or an empty
// reference when rendering was unavailable. Payload propagation and
// visual availability are decoupled.
type RenderResult struct {
	ImageRef    string    `json:"imageRef"`
	Payload     *Payload  `json:"payload"`
	PublishedAt time.Time `json:"publishedAt"`
}

// HasVisual reports whether the result carries a rendered image.
func (r *RenderResult) HasVisual() bool {
	return r != nil && r.ImageRef != ""
}
