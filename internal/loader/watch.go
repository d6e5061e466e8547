package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchEvent reports the re-check of one changed template file.
type WatchEvent struct {
	Path    string
	Entry   *Entry // set when the file parsed
	Err     error  // set when the file failed to load
	Removed bool   // the file was deleted or renamed away
}

// Watch re-parses templates as they change until ctx is cancelled. Bursts
// of events are debounced; each settled file is reported to fn once.
func (l *Loader) Watch(ctx context.Context, fn func(WatchEvent)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := l.watchDir(watcher, l.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}
	l.logger.Debug("watching templates", slog.String("dir", l.dir))

	pending := make(map[string]fsnotify.Op)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
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
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := l.watchDir(watcher, event.Name); err != nil {
						l.logger.Warn("failed to watch new directory", slog.String("dir", event.Name), slog.String("error", err.Error()))
					}
					continue
				}
			}
			if filepath.Ext(event.Name) != ".sql" || event.Op == fsnotify.Chmod {
				continue
			}

			pending[filepath.Clean(event.Name)] |= event.Op
			if timer == nil {
				timer = time.NewTimer(l.opts.Debounce)
			} else {
				timer.Reset(l.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			l.flush(pending, fn)
			clear(pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (l *Loader) flush(pending map[string]fsnotify.Op, fn func(WatchEvent)) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		l.Invalidate(path)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("template removed", slog.String("path", path))
			fn(WatchEvent{Path: path, Removed: true})
			continue
		}

		entry, err := l.Load(path)
		if err != nil {
			l.logger.Debug("template re-check failed", slog.String("path", path), slog.String("error", err.Error()))
			fn(WatchEvent{Path: path, Err: err})
			continue
		}
		l.logger.Debug("template re-checked", slog.String("path", path))
		fn(WatchEvent{Path: path, Entry: entry})
	}
}

// watchDir adds dir and its subdirectories, skipping hidden ones.
func (l *Loader) watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
