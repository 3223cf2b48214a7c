package image

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultSettle is how long the watcher waits after the last write before
// reloading, so a file being saved in several chunks is decoded once.
const DefaultSettle = 200 * time.Millisecond

// Watcher reloads a floor-plan image when the file changes on disk.
// Callbacks run on the watcher's goroutine.
type Watcher struct {
	path   string
	settle time.Duration

	onReload func(*Layer)
	onError  func(error)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	stopped chan struct{}

	// reloadMu is held for a whole reload, callbacks included, so Stop can
	// wait out one that is already running.
	reloadMu sync.Mutex
}

// NewWatcher creates a watcher for path. It does nothing until Start.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: filepath.Clean(path), settle: DefaultSettle}
}

// OnReload sets the callback invoked with each successfully decoded image.
func (w *Watcher) OnReload(fn func(*Layer)) { w.onReload = fn }

// OnError sets the callback invoked when a changed file fails to load.
func (w *Watcher) OnError(fn func(error)) { w.onError = fn }

// Start begins watching. The parent directory is watched rather than the
// file so atomic replace-on-save is seen.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.stopped = make(chan struct{})
	w.mu.Unlock()

	go w.loop(fsw, w.stopCh, w.stopped)
	log.Debugf("Image: watching %s", w.path)
	return nil
}

// Stop ends watching and waits for the loop and any running reload to
// finish. No callback runs after Stop returns. Safe to call twice, but not
// from inside a callback.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, stopCh, stopped := w.fsw, w.stopCh, w.stopped
	w.fsw = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	close(stopCh)
	fsw.Close()
	<-stopped

	w.reloadMu.Lock()
	w.reloadMu.Unlock()
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stopCh, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-stopCh:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("Image: watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.reload)
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	w.mu.Lock()
	active := w.fsw != nil
	w.mu.Unlock()
	if !active {
		return
	}

	layer, err := Load(w.path)
	if err != nil {
		log.Warnf("Image: reload failed: %v", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	log.Infof("Image: reloaded %s (%dx%d)", w.path, layer.Image.Bounds().Dx(), layer.Image.Bounds().Dy())
	if w.onReload != nil {
		w.onReload(layer)
	}
}
