package scalarfield

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports modifications of scalar field files. Events are
// collected by fsnotify in the background and only drained when Changed is
// called, so callers poll it from their own goroutine. A Watcher is not
// safe for concurrent use.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *slog.Logger
	dirs    map[string]int
	files   map[string]int
	changed map[string]bool
}

// watcherBuffer is the number of file events queued between polls.
const watcherBuffer = 256

// NewWatcher returns a watcher with no files. A nil logger uses slog.Default.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewBufferedWatcher(watcherBuffer)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher: w,
		log:     logger,
		dirs:    make(map[string]int),
		files:   make(map[string]int),
		changed: make(map[string]bool),
	}, nil
}

func cleanPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Add starts watching path. The containing directory is watched so that
// files replaced by editors through a rename are still followed.
func (w *Watcher) Add(path string) error {
	path = cleanPath(path)
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path]++
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	path = cleanPath(path)
	dir := filepath.Dir(path)
	if w.files[path] == 0 {
		return nil
	}
	w.files[path]--
	if w.files[path] == 0 {
		delete(w.files, path)
		delete(w.changed, path)
	}
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	return w.watcher.Remove(dir)
}

// Changed reports whether path was created, written, renamed or removed
// since the last call to Changed for that path. It never blocks.
func (w *Watcher) Changed(path string) bool {
	w.drain()
	path = cleanPath(path)
	if w.changed[path] {
		delete(w.changed, path)
		return true
	}
	return false
}

func (w *Watcher) drain() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)) {
				continue
			}
			// Other files share the watched directories.
			if name := cleanPath(ev.Name); w.files[name] > 0 {
				w.changed[name] = true
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("scalar field watcher error", "error", err)
		default:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.watcher.Close() }
