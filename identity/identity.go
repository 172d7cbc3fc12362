// Package identity keeps row instances alive across reloads: a freshly
// loaded row is merged into the instance already handed out under the same
// key instead of replacing it.
//
// Entries are generation-checked slots. Releasing a key bumps its slot's
// generation, which makes every outstanding Handle to it stale. Lookups
// check liveness at use, so a miss is never an error: the caller adopts the
// fresh instance instead.
package identity

import (
	"sort"

	"go.uber.org/zap"
)

// Merger merges source into target in place.
type Merger interface {
	Merge(target, source any) error
}

// Handle refers to one binding of a key. It goes stale when the key is
// released, forgotten or bound again.
type Handle struct {
	Key  string
	slot int
	gen  uint64
}

// Stats counts what Reconcile did with each fresh row.
type Stats struct {
	Merged  int
	Adopted int
	Dropped int
}

type slot[T any] struct {
	value T
	gen   uint64
	live  bool
}

// Table maps keys to live row instances.
type Table[T any] struct {
	keyOf  func(T) string
	merger Merger
	logger *zap.Logger

	slots []slot[T]
	index map[string]int
	free  []int
}

type config struct {
	logger *zap.Logger
}

// Option configures a Table.
type Option func(*config)

// WithLogger sets the logger merge fallbacks are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a table that keys values with keyOf and updates live values with merger.
func New[T any](keyOf func(T) string, merger Merger, opts ...Option) *Table[T] {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Table[T]{
		keyOf:  keyOf,
		merger: merger,
		logger: cfg.logger,
		index:  make(map[string]int),
	}
}

// Bind makes v the live instance for key. Handles to a previous binding go stale.
func (t *Table[T]) Bind(key string, v T) Handle {
	i, ok := t.index[key]
	if !ok {
		i = t.alloc()
		t.index[key] = i
	}

	s := &t.slots[i]
	s.gen++
	s.value = v
	s.live = true

	return Handle{Key: key, slot: i, gen: s.gen}
}

func (t *Table[T]) alloc() int {
	if n := len(t.free); n > 0 {
		i := t.free[n-1]
		t.free = t.free[:n-1]

		return i
	}

	t.slots = append(t.slots, slot[T]{})

	return len(t.slots) - 1
}

// Lookup returns the live instance bound to key.
func (t *Table[T]) Lookup(key string) (T, bool) {
	var zero T

	i, ok := t.index[key]
	if !ok || !t.slots[i].live {
		return zero, false
	}

	return t.slots[i].value, true
}

// Handle returns a handle to the current binding of key.
func (t *Table[T]) Handle(key string) (Handle, bool) {
	i, ok := t.index[key]
	if !ok || !t.slots[i].live {
		return Handle{}, false
	}

	return Handle{Key: key, slot: i, gen: t.slots[i].gen}, true
}

// Get returns the instance h refers to, if its binding is still current.
func (t *Table[T]) Get(h Handle) (T, bool) {
	var zero T

	if h.slot < 0 || h.slot >= len(t.slots) {
		return zero, false
	}

	s := &t.slots[h.slot]
	if !s.live || s.gen != h.gen {
		return zero, false
	}

	return s.value, true
}

// Release drops the instance bound to key but keeps the key known: the entry
// is stale and the next Reconcile adopts a fresh instance for it.
func (t *Table[T]) Release(key string) {
	i, ok := t.index[key]
	if !ok {
		return
	}

	var zero T

	s := &t.slots[i]
	s.gen++
	s.value = zero
	s.live = false
}

// Forget removes key entirely.
func (t *Table[T]) Forget(key string) {
	i, ok := t.index[key]
	if !ok {
		return
	}

	t.Release(key)
	delete(t.index, key)
	t.free = append(t.free, i)
}

// Len returns the number of known keys, live or stale.
func (t *Table[T]) Len() int {
	return len(t.index)
}

// Keys returns the known keys, sorted.
func (t *Table[T]) Keys() []string {
	keys := make([]string, 0, len(t.index))
	for key := range t.index {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// Reconcile resolves freshly loaded rows against the live instances and
// returns the rows to use, in the order of fresh. A live instance absorbs its
// fresh row and replaces it; a stale or unknown key adopts the fresh row.
// Keys missing from fresh are forgotten.
func (t *Table[T]) Reconcile(fresh []T) ([]T, Stats) {
	var stats Stats

	out := make([]T, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))

	for _, row := range fresh {
		key := t.keyOf(row)

		if _, dup := seen[key]; dup {
			t.logger.Warn("duplicate row key", zap.String("key", key))
			out = append(out, row)
			stats.Adopted++

			continue
		}
		seen[key] = struct{}{}

		if live, ok := t.Lookup(key); ok {
			err := t.merger.Merge(live, row)
			if err == nil {
				out = append(out, live)
				stats.Merged++

				continue
			}

			t.logger.Warn("merge into live row failed, adopting fresh row", zap.String("key", key), zap.Error(err))
		}

		t.Bind(key, row)
		out = append(out, row)
		stats.Adopted++
	}

	for _, key := range t.Keys() {
		if _, ok := seen[key]; !ok {
			t.Forget(key)
			stats.Dropped++
		}
	}

	return out, stats
}
