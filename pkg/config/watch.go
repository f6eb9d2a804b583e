package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of events editors produce on save.
const reloadDebounce = 200 * time.Millisecond

// Watch re-reads the config at path whenever it changes and passes the
// result to fn. Files that fail to parse or validate are logged and skipped.
// The directory is watched rather than the file, since editors often
// replace the file on save. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go runWatch(ctx, w, path, fn)
	return nil
}

func runWatch(ctx context.Context, w *fsnotify.Watcher, path string, fn func(*Config)) {
	defer w.Close()

	name := filepath.Base(path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", "path", path, "error", err)
		case <-pending:
			pending = nil
			cfg, err := Read(path)
			if err != nil {
				slog.Warn("Config reload skipped", "path", path, "error", err)
				continue
			}
			slog.Info("Config reloaded", "path", path)
			fn(cfg)
		}
	}
}
