// Package media provides image compositing and upload processing
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
)

// Compositor flattens a payload's layer tree over its backing source
// binary and writes the result as a WebP preview under the board's
// media directory.
type Compositor struct {
	basePath string // Points to {mediaBasePath}; previews land in {basePath}/{boardId}/previews
	quality  int
	logger   *logging.ChanneledLogger
}

// NewCompositor creates a new Compositor instance
func NewCompositor(basePath string, quality int, logger *logging.ChanneledLogger) *Compositor {
	return &Compositor{
		basePath: basePath,
		quality:  quality,
		logger:   logger,
	}
}

// Composite renders the payload against the source binary and returns
// the served URL of the written preview image. The context is checked
// between layers so superseded renders stop early.
func (c *Compositor) Composite(ctx context.Context, boardID, nodeID string, payload *design.Payload, source *design.SourceBinary) (string, error) {
	start := time.Now()

	if payload == nil {
		return "", fmt.Errorf("nil payload")
	}
	if source == nil || len(source.Data) == 0 {
		return "", fmt.Errorf("source binary %s has no data", payload.SourceID)
	}

	scale := payload.Scale
	if scale <= 0 {
		scale = 1
	}

	width := int(math.Round(payload.Metrics.Width * scale))
	height := int(math.Round(payload.Metrics.Height * scale))
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("payload has no drawable area (%gx%g)", payload.Metrics.Width, payload.Metrics.Height)
	}

	src, err := decodeSource(source)
	if err != nil {
		return "", fmt.Errorf("failed to decode source binary %s: %w", source.ID, err)
	}

	canvas := imaging.New(width, height, color.NRGBA{0, 0, 0, 0})

	canvas, err = c.flattenLayers(ctx, canvas, src, payload.Layers, scale)
	if err != nil {
		return "", err
	}

	targetDir := filepath.Join(c.basePath, boardID, "previews")
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create previews directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.webp", nodeID, ulid.Make().String())
	fullPath := filepath.Join(targetDir, filename)

	if err := webp.Save(fullPath, canvas, &webp.Options{Quality: float32(c.quality)}); err != nil {
		return "", fmt.Errorf("failed to save preview %s: %w", filename, err)
	}

	imageRef := fmt.Sprintf("/media/%s/previews/%s", boardID, filename)

	if c.logger != nil {
		c.logger.Render().Info("Composite completed",
			"boardId", boardID, "nodeId", nodeID, "imageRef", imageRef,
			"width", width, "height", height, "duration", time.Since(start))
	}
	return imageRef, nil
}

// flattenLayers walks the layer tree in document order, painting each
// drawable layer onto the canvas.
func (c *Compositor) flattenLayers(ctx context.Context, canvas *image.NRGBA, src image.Image, layers []*design.LayerNode, scale float64) (*image.NRGBA, error) {
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opacity := layer.Opacity
		if opacity <= 0 || opacity > 1 {
			opacity = 1
		}

		x := int(math.Round(layer.X * scale))
		y := int(math.Round(layer.Y * scale))
		w := int(math.Round(layer.W * scale))
		h := int(math.Round(layer.H * scale))

		switch layer.Kind {
		case "image":
			region := src.Bounds()
			if r := layer.SourceRegion; r != nil {
				region = image.Rect(int(r.X), int(r.Y), int(r.X+r.W), int(r.Y+r.H))
			}
			cropped := imaging.Crop(src, region)
			if w > 0 && h > 0 {
				cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
			}
			canvas = imaging.Overlay(canvas, cropped, image.Pt(x, y), opacity)

		case "shape", "text":
			if w > 0 && h > 0 {
				fill := parseHexColor(layer.Fill)
				block := imaging.New(w, h, fill)
				canvas = imaging.Overlay(canvas, block, image.Pt(x, y), opacity)
			}

		case "frame":
			// Frames contribute no pixels of their own.
		}

		if len(layer.Children) > 0 {
			var err error
			canvas, err = c.flattenLayers(ctx, canvas, src, layer.Children, scale)
			if err != nil {
				return nil, err
			}
		}
	}
	return canvas, nil
}

// decodeSource decodes a source binary, routing webp through its
// dedicated decoder since imaging does not handle it.
func decodeSource(source *design.SourceBinary) (image.Image, error) {
	if strings.Contains(source.ContentType, "webp") {
		return webp.Decode(bytes.NewReader(source.Data))
	}
	return imaging.Decode(bytes.NewReader(source.Data))
}

// parseHexColor parses "#rrggbb" fills; unknown values fall back to a
// neutral placeholder gray.
func parseHexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}
}
