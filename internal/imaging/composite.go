package imaging

import (
	"image"

	"github.com/fogleman/gg"
)

const (
	compositeGap     = 16
	compositeCaption = 28
)

// Panel is one captioned image of a composite.
type Panel struct {
	Caption string
	Image   image.Image
}

// Composite draws the panels side by side on a white canvas, each scaled by
// factor and captioned above. A nil panel image leaves an empty framed slot.
func Composite(width, height int, factor float64, panels ...Panel) image.Image {
	if factor <= 0 {
		factor = 1
	}
	pw := max(1, int(float64(width)*factor))
	ph := max(1, int(float64(height)*factor))

	cw := len(panels)*pw + (len(panels)+1)*compositeGap
	ch := ph + compositeCaption + 2*compositeGap

	dc := gg.NewContext(cw, ch)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, p := range panels {
		x := float64(compositeGap + i*(pw+compositeGap))
		y := float64(compositeGap + compositeCaption)

		if p.Image != nil {
			dc.DrawImage(Contain(p.Image, pw, ph), int(x), int(y))
		}

		dc.SetRGB(0.8, 0.8, 0.8)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x-0.5, y-0.5, float64(pw)+1, float64(ph)+1)
		dc.Stroke()

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(p.Caption, x+float64(pw)/2, float64(compositeGap)+compositeCaption/2, 0.5, 0.5)
	}

	return dc.Image()
}

// SaveComposite draws a composite and writes it to path as PNG.
func SaveComposite(path string, width, height int, factor float64, panels ...Panel) error {
	return SavePNG(path, Composite(width, height, factor, panels...))
}
