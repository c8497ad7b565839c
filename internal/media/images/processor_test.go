package images

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"testing"

	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Process(t *testing.T) {
	t.Run("accepts a PNG upload", func(t *testing.T) {
		processor := setupTestProcessor(t)
		data := pngFixture(t, 128, 128)

		result, err := processor.Process("usr-001", data)
		require.NoError(t, err)
		assert.Len(t, result.Hash, 64, "hash should be 64 characters (SHA256)")
		assert.NotEmpty(t, result.BlurHash)
		assert.Equal(t, "png", result.Format)
		assert.Equal(t, 128, result.Width)
		assert.Equal(t, 128, result.Height)
		assert.Equal(t, len(data), result.Size)

		// The original bytes are stored unchanged.
		stored, err := processor.storage.Get("usr-001")
		require.NoError(t, err)
		assert.Equal(t, data, stored)
	})

	t.Run("accepts JPEG and GIF uploads", func(t *testing.T) {
		processor := setupTestProcessor(t)

		img := gradientImage(64, 64)

		var jpegBuf bytes.Buffer
		require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))
		result, err := processor.Process("usr-jpeg", jpegBuf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "jpeg", result.Format)

		var gifBuf bytes.Buffer
		require.NoError(t, gif.Encode(&gifBuf, img, nil))
		result, err = processor.Process("usr-gif", gifBuf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "gif", result.Format)
	})

	t.Run("rejects non-image data", func(t *testing.T) {
		processor := setupTestProcessor(t)

		result, err := processor.Process("usr-bad", []byte("definitely not an image"))
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "decode image")
		assert.False(t, processor.storage.Exists("usr-bad"))
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		processor := setupTestProcessor(t)
		huge := make([]byte, maxAvatarBytes+1)

		result, err := processor.Process("usr-huge", huge)
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "maximum size")
	})

	t.Run("rejects images below minimum dimensions", func(t *testing.T) {
		processor := setupTestProcessor(t)
		data := pngFixture(t, 4, 4)

		result, err := processor.Process("usr-tiny", data)
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "too small")
	})

	t.Run("rejects images above maximum dimensions", func(t *testing.T) {
		processor := setupTestProcessor(t)
		data := pngFixture(t, maxAvatarDimension+8, 8)

		result, err := processor.Process("usr-wide", data)
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		processor := setupTestProcessor(t)

		_, err := processor.Process("", pngFixture(t, 32, 32))
		assert.Error(t, err)

		_, err = processor.Process("usr-1", nil)
		assert.Error(t, err)
	})

	t.Run("same upload produces same hash", func(t *testing.T) {
		processor := setupTestProcessor(t)
		data := pngFixture(t, 64, 64)

		first, err := processor.Process("usr-repeat", data)
		require.NoError(t, err)

		second, err := processor.Process("usr-repeat", data)
		require.NoError(t, err)

		assert.Equal(t, first.Hash, second.Hash)
		assert.Equal(t, first.BlurHash, second.BlurHash)
	})
}

func TestComputeBlurHash(t *testing.T) {
	t.Run("encodes a large image via thumbnail", func(t *testing.T) {
		hash, err := ComputeBlurHash(gradientImage(400, 200))
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
	})

	t.Run("encodes a small image directly", func(t *testing.T) {
		hash, err := ComputeBlurHash(gradientImage(16, 16))
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
	})

	t.Run("is deterministic", func(t *testing.T) {
		img := gradientImage(100, 100)

		hash1, err := ComputeBlurHash(img)
		require.NoError(t, err)
		hash2, err := ComputeBlurHash(img)
		require.NoError(t, err)

		assert.Equal(t, hash1, hash2)
	})
}

// Helper functions.

// setupTestProcessor creates a Processor with a temporary storage.
func setupTestProcessor(t *testing.T) *Processor {
	t.Helper()
	tmpDir := t.TempDir()
	storage, err := NewStorage(tmpDir)
	require.NoError(t, err)

	log := logger.New(logger.Config{Level: slog.LevelDebug})
	return NewProcessor(storage, log.Logger)
}

// gradientImage produces a deterministic test image.
func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	return img
}

// pngFixture encodes a gradient image as PNG bytes.
func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradientImage(w, h)))
	return buf.Bytes()
}
