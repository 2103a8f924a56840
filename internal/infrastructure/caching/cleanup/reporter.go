package cleanup

import (
	"fmt"
	"strings"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
)

// GenerateBoardReport builds a human-readable snapshot of one board's
// cache state for verbose cleanup logs.
func GenerateBoardReport(cache *manager.Manager, boardID string) string {
	var b strings.Builder

	published := cache.GetAllPublished(boardID)
	edges := cache.GetEdges(boardID)

	fmt.Fprintf(&b, "Board %s:\n", boardID)
	fmt.Fprintf(&b, "  edges:            %d\n", len(edges))
	fmt.Fprintf(&b, "  published nodes:  %d\n", len(published))
	fmt.Fprintf(&b, "  render version:   %d\n", cache.RenderVersion(boardID))

	var withVisual int
	for _, result := range published {
		if result.HasVisual() {
			withVisual++
		}
	}
	fmt.Fprintf(&b, "  visual previews:  %d\n", withVisual)

	return b.String()
}
