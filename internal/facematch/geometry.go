package facematch

import (
	"image"
	"math"
)

// BoxFromCorners converts a detector bbox [x1, y1, x2, y2] in pixels to a rectangle.
// Returns false for malformed or empty boxes.
func BoxFromCorners(bbox []float64) (image.Rectangle, bool) {
	if len(bbox) != 4 {
		return image.Rectangle{}, false
	}
	r := image.Rect(
		int(math.Floor(bbox[0])),
		int(math.Floor(bbox[1])),
		int(math.Ceil(bbox[2])),
		int(math.Ceil(bbox[3])),
	)
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// Corners returns r as [x1, y1, x2, y2].
func Corners(r image.Rectangle) []float64 {
	return []float64{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)}
}

// ScaleBox multiplies every coordinate of r by factor.
// Boxes found on a frame downscaled by s are mapped back with ScaleBox(r, 1/s).
func ScaleBox(r image.Rectangle, factor float64) image.Rectangle {
	if factor <= 0 {
		return r
	}
	return image.Rect(
		int(math.Round(float64(r.Min.X)*factor)),
		int(math.Round(float64(r.Min.Y)*factor)),
		int(math.Round(float64(r.Max.X)*factor)),
		int(math.Round(float64(r.Max.Y)*factor)),
	)
}

// ScaleBoxes applies ScaleBox to every box and returns a new slice.
func ScaleBoxes(boxes []image.Rectangle, factor float64) []image.Rectangle {
	out := make([]image.Rectangle, len(boxes))
	for i, b := range boxes {
		out[i] = ScaleBox(b, factor)
	}
	return out
}

// ScaledSize returns the dimensions of a w x h frame downscaled by factor, never below 1x1.
func ScaledSize(w, h int, factor float64) (int, int) {
	sw := int(math.Round(float64(w) * factor))
	sh := int(math.Round(float64(h) * factor))
	return max(sw, 1), max(sh, 1)
}
