//go:build !gocv

package capture

import (
	"errors"
	"image"
)

// ErrNoCamera is returned when the binary was built without camera support.
var ErrNoCamera = errors.New("camera support not compiled in (build with -tags gocv)")

// Open always fails without gocv.
func (w Webcam) Open() (Device, error) {
	return nil, ErrNoCamera
}

// Window is unavailable without gocv.
type Window struct{}

// NewWindow always fails without gocv.
func NewWindow(title string) (*Window, error) {
	return nil, ErrNoCamera
}

func (w *Window) Show(img image.Image) (bool, error) {
	return false, ErrNoCamera
}

func (w *Window) Close() error {
	return nil
}
