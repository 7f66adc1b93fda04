//go:build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Open opens the camera.
func (w Webcam) Open() (Device, error) {
	vc, err := gocv.OpenVideoCapture(w.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", w.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d not available", w.Device)
	}
	return &webcamDevice{vc: vc, mat: gocv.NewMat()}, nil
}

type webcamDevice struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
	seq uint64
}

func (d *webcamDevice) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if ok := d.vc.Read(&d.mat); !ok {
		return Frame{}, errors.New("camera read failed")
	}
	if d.mat.Empty() {
		return Frame{}, errors.New("camera returned empty frame")
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("convert frame: %w", err)
	}

	f := Frame{Seq: d.seq, Captured: time.Now(), Image: toRGBA(img)}
	d.seq++
	return f, nil
}

func (d *webcamDevice) Close() error {
	d.mat.Close()
	return d.vc.Close()
}

// Window shows frames in a native window. Pressing q asks the pipeline to stop.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window titled title.
func NewWindow(title string) (*Window, error) {
	return &Window{win: gocv.NewWindow(title)}, nil
}

// Show displays img and polls the keyboard once.
func (w *Window) Show(img image.Image) (bool, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	key := w.win.WaitKey(1)
	return key == 'q' || key == 'Q', nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
