package lexicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor or an atomic rename
// produces into one upgrade.
const watchDebounce = 100 * time.Millisecond

// Watch upgrades c from the corpus file at path every time the file is
// written or replaced. The file's directory is watched rather than the file
// itself so that atomic replacements are seen. Watch blocks until ctx is
// cancelled and returns nil in that case.
func Watch(ctx context.Context, c *Coordinator, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func(watcher *fsnotify.Watcher) {
		_ = watcher.Close()
	}(watcher)

	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	c.logger.InfoContext(ctx, "Watching corpus for changes", slog.String("path", path))

	source := dictionary.FileSource{Path: path}
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				c.logger.InfoContext(ctx, "Corpus changed, upgrading", slog.String("path", path))
				go func() {
					if err := <-c.Upgrade(ctx, source); errors.Is(err, ErrUpgradeInProgress) {
						c.logger.WarnContext(ctx, "Corpus changed during an upgrade, change skipped", slog.String("path", path))
					}
				}()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.WarnContext(ctx, "Corpus watcher error", slog.Any("error", err))
		}
	}
}
