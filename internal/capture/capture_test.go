package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestDirSource_Order(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), color.RGBA{G: 200, A: 255})
	writePNG(t, filepath.Join(dir, "a.png"), color.RGBA{R: 200, A: 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	dev, err := DirSource{Dir: dir}.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	ctx := context.Background()
	first, err := dev.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := first.Image.RGBAAt(0, 0); got.R != 200 {
		t.Errorf("expected a.png first, got pixel %v", got)
	}
	if first.Seq != 0 {
		t.Errorf("expected seq 0, got %d", first.Seq)
	}

	second, err := dev.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := second.Image.RGBAAt(0, 0); got.G != 200 {
		t.Errorf("expected b.png second, got pixel %v", got)
	}

	if _, err := dev.Read(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
}

func TestDirSource_Loop(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), color.RGBA{B: 255, A: 255})

	dev, err := DirSource{Dir: dir, Loop: true}.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	for i := range 3 {
		f, err := dev.Read(context.Background())
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if f.Seq != uint64(i) {
			t.Errorf("expected seq %d, got %d", i, f.Seq)
		}
	}
}

func TestDirSource_OpenErrors(t *testing.T) {
	if _, err := (DirSource{Dir: filepath.Join(t.TempDir(), "missing")}).Open(); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := (DirSource{Dir: t.TempDir()}).Open(); err == nil {
		t.Error("expected error for directory without images")
	}
}

func TestDirSource_ReadAfterClose(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), color.RGBA{A: 255})
	dev, err := DirSource{Dir: dir}.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	dev.Close()
	if _, err := dev.Read(context.Background()); err == nil {
		t.Error("expected error reading closed device")
	}
}

func TestSynthetic(t *testing.T) {
	src := &Synthetic{Width: 10, Height: 5, Frames: 2}
	dev, err := src.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := range 2 {
		f, err := dev.Read(context.Background())
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if f.Image.Bounds() != image.Rect(0, 0, 10, 5) {
			t.Errorf("unexpected bounds %v", f.Image.Bounds())
		}
		if got := f.Image.RGBAAt(3, 2); got.R != uint8(i) || got.A != 0xff {
			t.Errorf("frame %d pixel = %v, want gray %d opaque", i, got, i)
		}
	}
	if _, err := dev.Read(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
	dev.Close()

	if src.Opens() != 1 || src.Closes() != 1 || src.Reads() != 3 {
		t.Errorf("counters opens=%d closes=%d reads=%d", src.Opens(), src.Closes(), src.Reads())
	}
}

func TestSynthetic_Failures(t *testing.T) {
	openErr := errors.New("busy")
	if _, err := (&Synthetic{OpenErr: openErr}).Open(); !errors.Is(err, openErr) {
		t.Errorf("expected open error, got %v", err)
	}

	src := &Synthetic{FailAt: 2, FailCount: 2}
	dev, _ := src.Open()
	ctx := context.Background()

	want := []bool{false, true, true, false}
	for i, wantErr := range want {
		_, err := dev.Read(ctx)
		if (err != nil) != wantErr {
			t.Errorf("read %d: err = %v, want error %v", i+1, err, wantErr)
		}
	}
}

func TestFrameSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	fs, err := NewFrameSaver(dir, 90, 2)
	if err != nil {
		t.Fatalf("NewFrameSaver failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for range 3 {
		quit, err := fs.Show(img)
		if err != nil {
			t.Fatalf("Show failed: %v", err)
		}
		if quit {
			t.Error("FrameSaver should never quit")
		}
	}

	saved, dropped := fs.Stats()
	if saved != 2 || dropped != 0 {
		t.Errorf("Stats() = %d, %d; want 2, 0", saved, dropped)
	}
	for _, name := range []string{"frame_000000.jpg", "frame_000002.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestToRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 2, 6, 5))
	gray.SetGray(2, 2, color.Gray{Y: 100})

	got := toRGBA(gray)
	if got.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("bounds = %v, want origin-anchored 4x3", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c.R != 100 || c.A != 255 {
		t.Errorf("pixel = %v, want gray 100", c)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if toRGBA(rgba) != rgba {
		t.Error("expected origin RGBA image to be returned as is")
	}
}
