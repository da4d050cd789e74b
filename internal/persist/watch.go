package persist

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports external modifications of the tab-set record until ctx is
// cancelled. The state directory is watched rather than the file itself
// because atomic saves replace the file by rename. The store's own saves
// also trigger onChange; callers are expected to treat reloads of unchanged
// state as no-ops.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	if s.log != nil {
		s.log.Debug("state watch started")
	}
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != stateFile {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if s.log != nil {
					s.log.Trace("state file changed", "op", event.Op.String())
				}
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if s.log != nil {
					s.log.Warn("state watch error", "err", err)
				}
			}
		}
	}()
	return nil
}
