package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/cdhutch/cnsf/pkg/core"
)

// Watch reports note file changes to handler until ctx is cancelled.
// Bursts on the same file are coalesced. Watch returns once the watcher is
// running; handler is called from a background goroutine.
func (r *Repository) Watch(ctx context.Context, handler func(core.Event)) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := r.recursiveAdd(watcher, r.Root); err != nil {
		_ = watcher.Close()
		return err
	}
	r.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer r.setWatcherActive(false)
		defer watcher.Close()

		d := newDebouncer(r.config.Debounce)
		err := r.watchLoop(ctx, watcher, d, handler)
		d.stopAndWait(5 * time.Second)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		r.reportError(fmt.Errorf("watcher: %w", err))
	}))
	return nil
}

func (r *Repository) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, d *debouncer, handler func(core.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			r.processEvent(ctx, watcher, event, d, handler)

		case err, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			r.config.Logger.Error("fsnotify error", "error", err)
			r.reportError(err)
		}
	}
}

func (r *Repository) processEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, d *debouncer, handler func(core.Event)) {
	r.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := r.recursiveAdd(watcher, event.Name); err != nil {
				r.reportError(err)
			}
			return
		}
	}

	rel, err := r.resolveID(event.Name)
	if err != nil || !r.Match(rel) {
		return
	}
	eType := mapEventType(event)
	if eType == "" {
		return
	}

	d.add(core.Event{Type: eType, ID: rel, Timestamp: time.Now().Unix()}, func(e core.Event) {
		if ctx.Err() != nil {
			return
		}
		handler(e)
	})
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

// recursiveAdd watches dir and every directory below it, skipping hidden
// directories such as .git and the system directory.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("repository error", "error", err)
}
