package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls OnChange when the graph file has been written, created or
// replaced and then left alone for the debounce period. The parent directory
// is watched so that files replaced by rename are still seen.
type Watcher struct {
	Path     string
	Debounce time.Duration
	OnChange func(ctx context.Context) error
	Logf     func(format string, args ...any)
}

// Run watches until ctx is cancelled. Reload failures are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	target, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve graph path: %w", err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			name, _ := filepath.Abs(event.Name)
			if name != target || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logf("watch error: %v", err)

		case <-timer.C:
			if err := w.OnChange(ctx); err != nil {
				w.logf("reload failed: %v", err)
				continue
			}

			w.logf("graph reloaded from %s", target)
		}
	}
}

func (w *Watcher) logf(format string, args ...any) {
	if w.Logf != nil {
		w.Logf(format, args...)
	}
}
