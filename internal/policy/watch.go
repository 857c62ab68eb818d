package policy

import "github.com/fsnotify/fsnotify"

// Watch returns an fsnotify.Watcher armed on dir, so a caller (cmd/polkitd's
// reload loop) can rebuild the Cache with Load whenever a .policy file is
// added, removed, or rewritten. The caller owns the returned watcher and
// must Close it.
func Watch(dir string) (*fsnotify.Watcher, error) {
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
