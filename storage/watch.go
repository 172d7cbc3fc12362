package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type fsWatcher struct {
	store    *Filesystem
	watcher  *fsnotify.Watcher
	events   chan Event
	fire     chan string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// timers is owned by the loop goroutine.
	timers map[string]*time.Timer
}

// Watch reports writes below the root. Bursts of events for one path are
// collapsed into a single Event once the path has been quiet for the
// store's debounce delay.
func (f *Filesystem) Watch(ctx context.Context) (Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &fsWatcher{
		store:   f,
		watcher: fw,
		events:  make(chan Event, 16),
		fire:    make(chan string),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
	if err := w.addTree(f.root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", f.root, err)
	}

	w.wg.Add(1)
	go w.loop(ctx)

	f.logger.Debug("watching resources", zap.String("root", f.root))

	return w, nil
}

func (w *fsWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip what we cannot access
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			w.store.logger.Warn("failed to watch directory", zap.String("path", p), zap.Error(err))
		}

		return nil
	})
}

func (w *fsWatcher) Events() <-chan Event { return w.events }

func (w *fsWatcher) Close() error {
	w.stop()
	w.wg.Wait()

	return nil
}

func (w *fsWatcher) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *fsWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.events)
	defer func() { _ = w.watcher.Close() }()
	defer func() {
		for _, t := range w.timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("file watcher error", zap.Error(err))
		case rel := <-w.fire:
			delete(w.timers, rel)
			select {
			case w.events <- Event{Path: rel}:
			case <-w.done:
				return
			case <-ctx.Done():
				w.stop()
				return
			}
		}
	}
}

func (w *fsWatcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if strings.HasPrefix(filepath.Base(ev.Name), tmpPrefix) {
		return
	}
	if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
		_ = w.addTree(ev.Name)
		return
	}
	rel, err := w.store.relative(ev.Name)
	if err != nil {
		return
	}

	w.store.logger.Debug("resource changed", zap.String("path", rel), zap.String("operation", ev.Op.String()))

	if t, ok := w.timers[rel]; ok {
		t.Stop()
	}
	w.timers[rel] = time.AfterFunc(w.store.debounce, func() {
		select {
		case w.fire <- rel:
		case <-w.done:
		}
	})
}
