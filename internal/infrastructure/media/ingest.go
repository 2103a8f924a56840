package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var binaryPattern = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// ProcessBase64Binary decodes a base64 data-URI upload and writes it
// under the board's sources directory, returning the decoded bytes, the
// detected content type, and the full path on disk.
func ProcessBase64Binary(basePath, boardID, data, filename string) ([]byte, string, string, error) {
	if data == "" {
		return nil, "", "", fmt.Errorf("empty base64 data")
	}

	ext, contentType := extractFormat(data)
	if ext == "" {
		return nil, "", "", fmt.Errorf("unsupported image format")
	}

	if !binaryPattern.MatchString(data) {
		return nil, "", "", fmt.Errorf("invalid binary image base64 format")
	}

	b64Data := binaryPattern.ReplaceAllString(data, "")
	decoded, err := base64.StdEncoding.DecodeString(b64Data)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to decode base64: %w", err)
	}

	targetDir := filepath.Join(basePath, boardID, "sources")
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, "", "", fmt.Errorf("failed to create sources directory: %w", err)
	}

	fullFilename := fmt.Sprintf("%s.%s", filename, ext)
	fullPath := filepath.Join(targetDir, fullFilename)
	if err := os.WriteFile(fullPath, decoded, 0644); err != nil {
		return nil, "", "", fmt.Errorf("failed to write binary file: %w", err)
	}

	return decoded, contentType, fullPath, nil
}

// extractFormat auto-detects file extension and content type from the
// data-URI MIME prefix.
func extractFormat(data string) (string, string) {
	switch {
	case strings.Contains(data, "data:image/png"):
		return "png", "image/png"
	case strings.Contains(data, "data:image/jpeg"), strings.Contains(data, "data:image/jpg"):
		return "jpg", "image/jpeg"
	case strings.Contains(data, "data:image/webp"):
		return "webp", "image/webp"
	case strings.Contains(data, "data:image/gif"):
		return "gif", "image/gif"
	case strings.Contains(data, "data:image/"):
		return "png", "image/png"
	}
	return "", ""
}
