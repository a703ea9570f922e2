package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	// register JPEG so captures saved by other tools still decode
	_ "image/jpeg"

	"github.com/nao1215/shotdiff/internal/model"
	"golang.org/x/image/draw"
)

// Load opens and decodes the image at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from the artifact layout
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMissingFile, path, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return img, nil
}

// Contain fits src into a width x height frame. The aspect ratio is kept,
// the scaled image is centered and the padding is transparent. An image that
// already has the frame size is copied pixel for pixel, so Contain is idempotent.
func Contain(src image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	b := src.Bounds()
	if b.Empty() {
		return dst
	}
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	scale := math.Min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	sw := clamp(int(math.Round(float64(b.Dx())*scale)), 1, width)
	sh := clamp(int(math.Round(float64(b.Dy())*scale)), 1, height)
	ox := (width - sw) / 2
	oy := (height - sh) / 2

	draw.CatmullRom.Scale(dst, image.Rect(ox, oy, ox+sw, oy+sh), src, b, draw.Src, nil)
	return dst
}

// Normalize reads the screenshot at path, fits it into the canonical frame
// and overwrites the file with the result.
func Normalize(path string, width, height int) (*model.CapturedImage, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidFrame
	}

	src, err := Load(path)
	if err != nil {
		return nil, err
	}

	pixels := Contain(src, width, height)
	if err := SavePNG(path, pixels); err != nil {
		return nil, err
	}

	return &model.CapturedImage{
		Pixels: pixels,
		Width:  width,
		Height: height,
		Path:   path,
	}, nil
}

// SavePNG encodes img to path. The file is written to a temporary sibling and
// renamed into place so readers never observe a partial PNG.
func SavePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".shotdiff-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
