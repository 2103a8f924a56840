package media

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBase64Binary(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	t.Run("writes decoded bytes under board sources", func(t *testing.T) {
		base := t.TempDir()

		decoded, contentType, fullPath, err := ProcessBase64Binary(base, "board-1", dataURI, "logo")
		require.NoError(t, err)
		assert.Equal(t, raw, decoded)
		assert.Equal(t, "image/png", contentType)
		assert.Equal(t, filepath.Join(base, "board-1", "sources", "logo.png"), fullPath)

		onDisk, err := os.ReadFile(fullPath)
		require.NoError(t, err)
		assert.Equal(t, raw, onDisk)
	})

	t.Run("jpeg extension", func(t *testing.T) {
		base := t.TempDir()
		uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

		_, contentType, fullPath, err := ProcessBase64Binary(base, "board-1", uri, "photo")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", contentType)
		assert.True(t, filepath.Ext(fullPath) == ".jpg")
	})

	t.Run("empty data", func(t *testing.T) {
		_, _, _, err := ProcessBase64Binary(t.TempDir(), "board-1", "", "x")
		assert.Error(t, err)
	})

	t.Run("missing data uri prefix", func(t *testing.T) {
		_, _, _, err := ProcessBase64Binary(t.TempDir(), "board-1", "data:image/pngnotbase64", "x")
		assert.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, _, err := ProcessBase64Binary(t.TempDir(), "board-1", "data:text/plain;base64,aGk=", "x")
		assert.Error(t, err)
	})

	t.Run("corrupt base64", func(t *testing.T) {
		_, _, _, err := ProcessBase64Binary(t.TempDir(), "board-1", "data:image/png;base64,!!!!", "x")
		assert.Error(t, err)
	})
}
