package imagestore

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoad_ResizesToCanvas(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "classification", "ct_01.png"), 512, 300)

	l := NewLoader(root, 0)
	img, err := l.Load("ct_01.png", "classification")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
}

func TestLoadPNG(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "sub", "nested", "a.png"), 64, 64)

	data, err := NewLoader(root, 128).LoadPNG("nested/a.png", "sub")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestLoad_NotFound(t *testing.T) {
	l := NewLoader(t.TempDir(), 256)

	_, err := l.Load("missing.png", "classification")
	assert.ErrorIs(t, err, model.ErrImageNotFound)

	for _, ref := range []string{"", "../secret.png", "/etc/passwd", "a/../../b.png"} {
		_, err := l.Load(ref, "classification")
		assert.ErrorIs(t, err, model.ErrImageNotFound, ref)
	}
}

func TestLoad_CorruptImage(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NewLoader(root, 256).Load("bad.png", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrImageNotFound)
	assert.Contains(t, err.Error(), "error decoding image")
}

func TestLoad_RejectsOversizedImage(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "big.png"), 300, 40)

	l := NewLoader(root, 256)
	l.MaxDimension = 200
	_, err := l.Load("big.png", "")
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.NotErrorIs(t, err, model.ErrImageNotFound)

	l.MaxDimension = 300
	img, err := l.Load("big.png", "")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
}
