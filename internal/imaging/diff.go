package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nao1215/shotdiff/internal/score"
	"golang.org/x/image/draw"
)

// DefaultDiffColor paints mismatching pixels in the diff image.
var DefaultDiffColor = color.NRGBA{R: 0xFF, A: 0xFF}

// DiffResult is the outcome of one pixel diff.
type DiffResult struct {
	// Image has the size of the inputs. Mismatches are painted, matches are transparent.
	Image *image.NRGBA

	// Mismatched is the number of pixels outside the tolerance.
	Mismatched int

	// Total is the number of pixels compared.
	Total int
}

// Similarity returns the similarity percentage of the diff.
func (r *DiffResult) Similarity() float64 {
	return score.Similarity(r.Total, r.Mismatched)
}

// Differ compares two images of the same size.
// A Differ is immutable after construction and safe for concurrent use.
type Differ struct {
	threshold float64
	diffColor color.NRGBA
	altColor  *color.NRGBA
}

// DiffOption configures a Differ.
type DiffOption func(*Differ)

// WithThreshold overrides the per-channel tolerance (fraction of 255).
func WithThreshold(threshold float64) DiffOption {
	return func(d *Differ) {
		if threshold >= 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// WithDiffColor sets the color of mismatching pixels.
func WithDiffColor(c color.NRGBA) DiffOption {
	return func(d *Differ) {
		d.diffColor = c
	}
}

// WithAltColor paints mismatches where the candidate is darker than the
// reference in c, so the two sides of a change can be told apart.
func WithAltColor(c color.NRGBA) DiffOption {
	return func(d *Differ) {
		d.altColor = &c
	}
}

// NewDiffer returns a Differ using score.DiffThreshold and DefaultDiffColor
// unless overridden.
func NewDiffer(opts ...DiffOption) *Differ {
	d := &Differ{
		threshold: score.DiffThreshold,
		diffColor: DefaultDiffColor,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Threshold returns the per-channel tolerance in use.
func (d *Differ) Threshold() float64 {
	return d.threshold
}

// Diff compares reference and candidate pixel by pixel. Two pixels match when
// each of R, G, B and A differs by at most threshold*255. The dimensions are
// checked before anything else; differing sizes return ErrSizeMismatch.
func (d *Differ) Diff(reference, candidate image.Image) (*DiffResult, error) {
	rs, cs := reference.Bounds().Size(), candidate.Bounds().Size()
	if rs != cs {
		return nil, fmt.Errorf("%w: reference %dx%d, candidate %dx%d", ErrSizeMismatch, rs.X, rs.Y, cs.X, cs.Y)
	}

	ref := toNRGBA(reference)
	cand := toNRGBA(candidate)
	w, h := rs.X, rs.Y
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	limit := d.threshold * 255

	mismatched := 0
	for y := range h {
		ri := ref.PixOffset(ref.Rect.Min.X, ref.Rect.Min.Y+y)
		ci := cand.PixOffset(cand.Rect.Min.X, cand.Rect.Min.Y+y)
		oi := out.PixOffset(0, y)
		for range w {
			p := ref.Pix[ri : ri+4 : ri+4]
			q := cand.Pix[ci : ci+4 : ci+4]
			if !within(p, q, limit) {
				mismatched++
				c := d.diffColor
				if d.altColor != nil && luma(q) < luma(p) {
					c = *d.altColor
				}
				out.Pix[oi+0] = c.R
				out.Pix[oi+1] = c.G
				out.Pix[oi+2] = c.B
				out.Pix[oi+3] = c.A
			}
			ri += 4
			ci += 4
			oi += 4
		}
	}

	return &DiffResult{Image: out, Mismatched: mismatched, Total: w * h}, nil
}

func within(p, q []uint8, limit float64) bool {
	for k := range 4 {
		if float64(absDiff(p[k], q[k])) > limit {
			return false
		}
	}
	return true
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// luma is the Rec. 601 brightness of a non-premultiplied pixel.
func luma(p []uint8) float64 {
	return 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
	return n
}
