package store

import "github.com/fsnotify/fsnotify"

// WatchTriggers arms an fsnotify.Watcher on both store roots. Store.load
// already re-parses a uid's file whenever its own or the trigger's mtime
// has advanced, so this does not change read correctness; it exists so a
// long-running daemon can react to an external write (e.g. the grant
// helper, or an operator editing a file by hand) without waiting for the
// next incoming request to notice. The caller owns the returned watcher
// and must Close it.
func (s *Store) WatchTriggers() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range []string{s.PersistentRoot, s.TransientRoot} {
		if err := w.Add(root); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}
