package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays JPEG and PNG files from a directory in name order.
type DirSource struct {
	Dir  string
	Loop bool // restart from the first file instead of ending
}

// Open lists the directory. A missing directory or one without images fails.
func (s DirSource) Open() (Device, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(s.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", s.Dir)
	}
	sort.Strings(files)

	return &dirDevice{files: files, loop: s.Loop}, nil
}

type dirDevice struct {
	files  []string
	loop   bool
	next   int
	seq    uint64
	closed bool
}

func (d *dirDevice) Read(ctx context.Context) (Frame, error) {
	if d.closed {
		return Frame{}, fmt.Errorf("device closed")
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if d.next >= len(d.files) {
		if !d.loop {
			return Frame{}, ErrEndOfStream
		}
		d.next = 0
	}

	path := d.files[d.next]
	d.next++

	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	seq := d.seq
	d.seq++
	return Frame{Seq: seq, Captured: time.Now(), Image: toRGBA(img)}, nil
}

func (d *dirDevice) Close() error {
	d.closed = true
	return nil
}
