package shader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the name of a program whose source files changed on disk.
type ReloadFunc func(program string)

type watcher struct {
	mu       *sync.Mutex
	fsw      *fsnotify.Watcher
	dir      string
	onReload ReloadFunc
	debounce time.Duration
	pending  map[string]*time.Timer
	done     chan struct{}
	closed   bool
}

// Watcher reports shader programs whose files change in a directory, so they can be
// reloaded and relinked while the application runs. Bursts of writes to the same
// program are collapsed into one callback.
type Watcher interface {
	// Close stops watching. Pending callbacks are dropped.
	//
	// Returns:
	//   - error: the error from closing the underlying watcher
	Close() error
}

var _ Watcher = &watcher{}

// WatchDir starts watching dir. onReload runs on a timer goroutine; callers hand the
// name over to their render goroutine before touching the graphics backend.
//
// Parameters:
//   - dir: the directory holding .vert, .frag, .wgsl and chunk files
//   - debounce: quiet period before onReload fires
//   - onReload: callback receiving the program name (file base name without extension)
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the directory cannot be watched
func WatchDir(dir string, debounce time.Duration, onReload ReloadFunc) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("shader watcher add %q: %w", dir, err)
	}

	w := &watcher{
		mu:       &sync.Mutex{},
		fsw:      fsw,
		dir:      dir,
		onReload: onReload,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, ok := programName(event.Name); ok {
				w.schedule(name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader watcher error", "dir", w.dir, "err", err)
		}
	}
}

func (w *watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			common.Logger().Info("shader changed", "program", name)
			w.onReload(name)
		}
	})
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.pending {
		t.Stop()
	}
	clear(w.pending)
	close(w.done)
	w.mu.Unlock()
	return w.fsw.Close()
}

// programName maps a changed file to the program it belongs to. Editor swap files and
// unrelated extensions are ignored.
func programName(file string) (string, bool) {
	base := filepath.Base(file)
	if strings.HasPrefix(base, ".") {
		return "", false
	}
	ext := filepath.Ext(base)
	switch ext {
	case ExtVertex, ExtFragment, ExtWGSL:
		return strings.TrimSuffix(base, ext), true
	}
	return "", false
}
