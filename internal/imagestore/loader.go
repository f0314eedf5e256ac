// Package imagestore loads case images from disk and scales them onto a
// square canvas for display.
package imagestore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/agenthands/ctreview/internal/core/model"
)

const (
	DefaultSize = 256
	// DefaultMaxDimension bounds the width and height of a source image.
	DefaultMaxDimension = 8192
)

// ErrImageTooLarge is returned for source images wider or taller than
// MaxDimension. They are rejected before the pixel data is decoded.
var ErrImageTooLarge = errors.New("image too large")

// Loader resolves image references as Root/<subfolder>/<ref>.
type Loader struct {
	Root         string
	Size         int
	MaxDimension int
}

func NewLoader(root string, size int) *Loader {
	if size <= 0 {
		size = DefaultSize
	}
	return &Loader{Root: root, Size: size, MaxDimension: DefaultMaxDimension}
}

// Path returns the file an image reference points to. References that
// would escape the subfolder are rejected as not found.
func (l *Loader) Path(ref, subfolder string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty image reference", model.ErrImageNotFound)
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside the image root", model.ErrImageNotFound, ref)
	}
	return filepath.Join(l.Root, subfolder, clean), nil
}

// Load decodes the referenced image and scales it to Size x Size.
func (l *Loader) Load(ref, subfolder string) (image.Image, error) {
	path, err := l.Path(ref, subfolder)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrImageNotFound, path)
		}
		return nil, fmt.Errorf("error loading image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding image %s: %w", path, err)
	}
	if limit := l.MaxDimension; limit > 0 && (cfg.Width > limit || cfg.Height > limit) {
		return nil, fmt.Errorf("%w: %s is %dx%d, limit %d", ErrImageTooLarge, path, cfg.Width, cfg.Height, limit)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error loading image: %w", err)
	}

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding image %s: %w", path, err)
	}
	return Resize(src, l.Size), nil
}

// LoadPNG is Load followed by PNG encoding.
func (l *Loader) LoadPNG(ref, subfolder string) ([]byte, error) {
	img, err := l.Load(ref, subfolder)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("error encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

// Resize scales src onto a size x size canvas, ignoring aspect ratio.
func Resize(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
