package image

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.png")
	writePNG(t, path, 40, 30)

	layer, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s := layer.Size(); s.Width != 40 || s.Height != 30 {
		t.Fatalf("size %+v", s)
	}
	if layer.Format != "png" || layer.ModTime.IsZero() {
		t.Fatalf("metadata %+v", layer)
	}
}

func TestLoadBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.bmp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, image.NewGray(image.Rect(0, 0, 8, 4))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	layer, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if layer.Format != "bmp" || layer.Size().Width != 8 {
		t.Fatalf("got %s %+v", layer.Format, layer.Size())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	var le *LoadError

	_, err := Load(filepath.Join(dir, "missing.png"))
	if !errors.As(err, &le) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}

	_, err = Load(filepath.Join(dir, "plan.svg"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("svg: %v", err)
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.As(err, &le) || le.Path != bad {
		t.Fatalf("corrupt file: %v", err)
	}
}

func TestNilLayerSize(t *testing.T) {
	var l *Layer
	if s := l.Size(); !s.Empty() {
		t.Fatalf("nil layer size %+v", s)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.png")
	writePNG(t, path, 10, 10)

	w := NewWatcher(path)
	w.settle = 10 * time.Millisecond
	reloaded := make(chan *Layer, 4)
	w.OnReload(func(l *Layer) { reloaded <- l })
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	writePNG(t, filepath.Join(dir, "other.png"), 5, 5)
	writePNG(t, path, 20, 15)

	select {
	case l := <-reloaded:
		if s := l.Size(); s.Width != 20 || s.Height != 15 {
			t.Fatalf("reloaded size %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	w.Stop()
	w.Stop()
}

func TestStopWaitsForRunningReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.png")
	writePNG(t, path, 10, 10)

	w := NewWatcher(path)
	w.settle = time.Hour
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	w.OnReload(func(*Layer) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
		}
	})
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A settle timer that already fired is a reload running on its own
	// goroutine.
	go w.reload()
	<-entered

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a reload callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the reload finished")
	}

	w.reload()
	if calls != 1 {
		t.Fatalf("callback ran after Stop: %d calls", calls)
	}
}
