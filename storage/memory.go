package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memObject struct {
	data    []byte
	modTime time.Time
}

// Memory keeps resources in process. Watchers are notified synchronously on
// every Write, without debouncing.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string]memObject
	watchers map[*memWatcher]struct{}
	logger   *zap.Logger
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := newOptions(opts)

	return &Memory{
		objects:  make(map[string]memObject),
		watchers: make(map[*memWatcher]struct{}),
		logger:   o.logger,
	}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := Clean(p)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[clean]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := Clean(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[clean] = memObject{data: append([]byte(nil), data...), modTime: time.Now().UTC()}
	watchers := make([]*memWatcher, 0, len(m.watchers))
	for w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	for _, w := range watchers {
		w.notify(Event{Path: clean})
	}

	return nil
}

func (m *Memory) Stat(ctx context.Context, p string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	clean, err := Clean(p)
	if err != nil {
		return Info{}, err
	}
	m.mu.RLock()
	obj, ok := m.objects[clean]
	m.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	return Info{Path: clean, Size: int64(len(obj.data)), ModTime: obj.modTime}, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.objects))
	for p, obj := range m.objects {
		if strings.HasPrefix(p, prefix) {
			infos = append(infos, Info{Path: p, Size: int64(len(obj.data)), ModTime: obj.modTime})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	return infos, nil
}

// Watch reports every subsequent Write. Events are dropped when the
// consumer falls more than the channel buffer behind.
func (m *Memory) Watch(ctx context.Context) (Watcher, error) {
	w := &memWatcher{store: m, events: make(chan Event, 64), done: make(chan struct{})}
	m.mu.Lock()
	m.watchers[w] = struct{}{}
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()

	return w, nil
}

type memWatcher struct {
	store  *Memory
	mu     sync.Mutex
	events chan Event
	done   chan struct{}
	closed bool
}

func (w *memWatcher) Events() <-chan Event { return w.events }

func (w *memWatcher) notify(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
		w.store.logger.Warn("dropping resource event", zap.String("path", ev.Path))
	}
}

func (w *memWatcher) Close() error {
	w.store.mu.Lock()
	delete(w.store.watchers, w)
	w.store.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.done)
		close(w.events)
	}

	return nil
}
