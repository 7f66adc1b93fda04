package capture

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync/atomic"
)

// FrameSaver writes annotated frames to disk as JPEG. It never asks the
// pipeline to quit.
type FrameSaver struct {
	outputDir   string
	jpegQuality int
	every       uint64
	seen        atomic.Uint64
	saved       atomic.Uint64
	dropped     atomic.Uint64
}

// NewFrameSaver creates the output directory. every > 1 keeps one frame in every.
func NewFrameSaver(outputDir string, jpegQuality, every int) (*FrameSaver, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &FrameSaver{outputDir: outputDir, jpegQuality: jpegQuality, every: uint64(max(every, 1))}, nil
}

// Show saves img as frame_{seq:06d}.jpg.
func (fs *FrameSaver) Show(img image.Image) (bool, error) {
	seq := fs.seen.Add(1) - 1
	if seq%fs.every != 0 {
		return false, nil
	}

	path := filepath.Join(fs.outputDir, fmt.Sprintf("frame_%06d.jpg", seq))
	file, err := os.Create(path)
	if err != nil {
		fs.dropped.Add(1)
		return false, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: fs.jpegQuality}); err != nil {
		fs.dropped.Add(1)
		return false, fmt.Errorf("JPEG encode failed: %w", err)
	}

	fs.saved.Add(1)
	return false, nil
}

// Stats returns current save statistics.
func (fs *FrameSaver) Stats() (saved, dropped uint64) {
	return fs.saved.Load(), fs.dropped.Load()
}
