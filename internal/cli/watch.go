package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	vlog "github.com/futureCreator/vflow/internal/log"
)

// fileWatcher re-runs a function whenever a file changes. Rapid bursts of
// events, as editors produce on save, collapse into one run.
type fileWatcher struct {
	Path     string
	Debounce time.Duration
	// ready, when set, is closed once the directory watch is registered.
	ready chan struct{}
}

// Run calls fn once, then again after each change to Path, until ctx is
// done. Errors from fn are logged and do not stop the watch.
func (w *fileWatcher) Run(ctx context.Context, fn func(context.Context) error) error {
	target, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", w.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors that save by rename replace the file's
	// inode, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	if w.ready != nil {
		close(w.ready)
	}

	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			vlog.Error("pipeline run failed", "file", w.Path, "err", err)
		}
		vlog.Info("watching for changes", "file", w.Path)
	}
	run()

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			vlog.Warn("file watcher error", "file", w.Path, "err", err)
		case <-timer.C:
			vlog.Debug("file changed, re-running", "file", w.Path)
			run()
		}
	}
}
