package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce coalesces editor write bursts into a single reload.
const debounce = 250 * time.Millisecond

// Watch reloads the catalog whenever a definition file in the catalog
// directory is created, written, or removed. It blocks until ctx is
// cancelled. A missing directory is not an error; the watcher simply
// exits, and the next process start picks up any new files.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		c.logger.Debug("workflow directory not watchable",
			zap.String("dir", c.dir), zap.Error(err))
		return nil
	}

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isYAML(strings.ToLower(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			c.Reload()
			c.logger.Info("workflow catalog reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("workflow watcher error", zap.Error(err))
		}
	}
}
