// Package capture provides frame sources and sinks for the attendance pipeline.
package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"golang.org/x/image/draw"
)

// ErrEndOfStream is returned by finite sources after the last frame.
var ErrEndOfStream = errors.New("end of stream")

// Frame is one captured image. The receiver owns Image and may draw on it.
type Frame struct {
	Seq      uint64
	Captured time.Time
	Image    *image.RGBA
}

// Source opens a capture device. A device is exclusively owned by its opener.
type Source interface {
	Open() (Device, error)
}

// Device yields frames until it fails or is closed.
type Device interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// toRGBA returns img as an RGBA image anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
