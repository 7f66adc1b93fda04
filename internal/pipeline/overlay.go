package pipeline

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const (
	boxThickness = 2
	bandHeight   = 35
	textInset    = 6
)

var (
	colorKnown   = color.RGBA{G: 255, A: 255}
	colorUnknown = color.RGBA{R: 255, A: 255}
	colorText    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotation is one rendered face: a box in frame coordinates and its label.
type Annotation struct {
	Box      image.Rectangle
	Label    string // empty for unknown faces
	Distance float64
}

// Known reports whether the face was identified.
func (a Annotation) Known() bool {
	return a.Label != ""
}

// Text returns the caption drawn under the box.
func (a Annotation) Text() string {
	if !a.Known() {
		return "Unknown"
	}
	return "Roll: " + facematch.OverlayText(a.Label)
}

func (a Annotation) color() color.RGBA {
	if a.Known() {
		return colorKnown
	}
	return colorUnknown
}

// DrawOverlay renders every annotation onto dst. Boxes are clipped to dst.
func DrawOverlay(dst *image.RGBA, anns []Annotation) {
	for _, a := range anns {
		box := a.Box.Intersect(dst.Bounds())
		if box.Empty() {
			continue
		}
		c := a.color()
		strokeRect(dst, box, c)

		band := image.Rect(box.Min.X, max(box.Max.Y-bandHeight, box.Min.Y), box.Max.X, box.Max.Y)
		draw.Draw(dst, band, image.NewUniform(c), image.Point{}, draw.Src)

		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(colorText),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(box.Min.X+textInset, box.Max.Y-textInset),
		}
		d.DrawString(a.Text())
	}
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	t := min(boxThickness, r.Dx(), r.Dy())
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
}

// Downscale resizes src by factor for detection. Factors outside (0, 1)
// return src unchanged.
func Downscale(src *image.RGBA, factor float64) *image.RGBA {
	if factor <= 0 || factor >= 1 {
		return src
	}
	b := src.Bounds()
	w, h := facematch.ScaledSize(b.Dx(), b.Dy(), factor)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
