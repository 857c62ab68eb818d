package overrides

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch returns an fsnotify.Watcher armed on the directory containing path
// (editors commonly replace a config file via rename-into-place, which
// fsnotify only observes reliably at the directory level), so a caller can
// rebuild the Tree with Load whenever path changes. The caller owns the
// returned watcher and must Close it.
func Watch(path string) (*fsnotify.Watcher, error) {
	dir := filepath.Dir(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
