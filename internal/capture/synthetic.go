package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

// ErrSyntheticRead is returned by a Synthetic device at FailAt.
var ErrSyntheticRead = errors.New("synthetic read failure")

// Synthetic generates solid frames in memory. It records how it was used so
// tests can assert on device ownership.
type Synthetic struct {
	Width, Height int
	Frames        int   // frames before ErrEndOfStream; 0 means unlimited
	FailAt        int   // 1-based read that fails; 0 means never
	FailCount     int   // consecutive failures starting at FailAt; 0 means 1
	OpenErr       error // returned by Open when set

	mu     sync.Mutex
	opens  int
	closes int
	reads  int
}

// Open returns a new device or OpenErr.
func (s *Synthetic) Open() (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.opens++
	return &syntheticDevice{src: s}, nil
}

// Opens returns how many devices were opened.
func (s *Synthetic) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Closes returns how many devices were closed.
func (s *Synthetic) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Reads returns the total number of Read calls across devices.
func (s *Synthetic) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type syntheticDevice struct {
	src *Synthetic
	seq uint64
}

func (d *syntheticDevice) Read(ctx context.Context) (Frame, error) {
	s := d.src
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	if s.FailAt > 0 {
		count := max(s.FailCount, 1)
		if n >= s.FailAt && n < s.FailAt+count {
			return Frame{}, ErrSyntheticRead
		}
	}
	if s.Frames > 0 && int(d.seq) >= s.Frames {
		return Frame{}, ErrEndOfStream
	}

	w, h := s.Width, s.Height
	if w <= 0 {
		w = 64
	}
	if h <= 0 {
		h = 48
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	shade := uint8(d.seq % 256)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = shade
		img.Pix[i+1] = shade
		img.Pix[i+2] = shade
		img.Pix[i+3] = 0xff
	}

	f := Frame{Seq: d.seq, Captured: time.Now(), Image: img}
	d.seq++
	return f, nil
}

func (d *syntheticDevice) Close() error {
	d.src.mu.Lock()
	defer d.src.mu.Unlock()
	d.src.closes++
	return nil
}
