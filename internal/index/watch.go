package index

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// BuildFunc receives the outcome of every rebuild
type BuildFunc func(*Result, error)

// Watch rebuilds the index whenever the catalog file is written or
// replaced, until ctx is cancelled. The parent directory is watched so
// atomic rename-on-save is seen too.
func (b *Builder) Watch(ctx context.Context, debounce time.Duration, onBuild BuildFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	target, err := filepath.Abs(b.catalogPath)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	watcher, err := createWatcher(filepath.Dir(target))
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			b.log.Debug("failed to close watcher: %v", err)
		}
	}()

	b.log.Info("Watching %s", target)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !isCatalogChange(event, target) {
				continue
			}
			b.log.Debug("catalog event: %s", event.Op)
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			b.log.Warn("Watcher error: %v", err)

		case <-timer.C:
			result, err := b.Build(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			if onBuild != nil {
				onBuild(result, err)
			}
		}
	}
}

func createWatcher(dir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return watcher, nil
}

func isCatalogChange(event fsnotify.Event, target string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
