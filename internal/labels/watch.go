package labels

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/daverlon/KotlinYOLO/internal/logger"
)

// Watch reloads s whenever the file at path is written or recreated. It
// blocks until ctx is done. A file that fails to parse leaves s unchanged.
func (s *Set) Watch(ctx context.Context, path string, logger *logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create labels watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target ||
				!(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			names, err := Load(path)
			if err != nil {
				logger.Warning("Labels reload skipped: %v", err)
				continue
			}
			s.Replace(names)
			logger.Info("Reloaded %d labels from %s", len(names), path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Labels watcher error: %v", err)
		}
	}
}
