package registry

import (
	"reflect"
	"sort"
	"sync"
	"time"

	"datatables/internal/match"
	"datatables/node"

	"go.uber.org/zap"
)

// Registry maps type names to types and caches type descriptions.
// It is safe for concurrent use.
type Registry struct {
	logger *zap.Logger

	mu     sync.RWMutex
	byName map[string]reflect.Type
	opaque map[reflect.Type]OpaqueCodec
	descs  map[reflect.Type]*TypeDescription
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a registry. time.Time is registered as an opaque leaf.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger: zap.NewNop(),
		byName: make(map[string]reflect.Type),
		opaque: make(map[reflect.Type]OpaqueCodec),
		descs:  make(map[reflect.Type]*TypeDescription),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.RegisterOpaque(reflect.TypeFor[time.Time](), timeCodec)

	return r
}

// Register adds the exact types of the given samples.
// Samples of unnamed types are ignored.
func (r *Registry) Register(samples ...any) {
	for _, sample := range samples {
		r.RegisterType(reflect.TypeOf(sample))
	}
}

// Register adds T to reg.
func Register[T any](reg *Registry) {
	reg.RegisterType(reflect.TypeFor[T]())
}

// RegisterType adds t under its fully qualified name. Registering T and *T
// keeps the last one.
func (r *Registry) RegisterType(t reflect.Type) {
	name := r.NameOf(t)
	if name == "" {
		r.logger.Warn("cannot register unnamed type", zap.Stringer("type", t))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byName[name]; ok && prev != t {
		r.logger.Debug("type replaced", zap.String("name", name), zap.Stringer("previous", prev), zap.Stringer("type", t))
	}
	r.byName[name] = t
}

// RegisterOpaque makes t (and *t) an opaque leaf handled by codec.
func (r *Registry) RegisterOpaque(t reflect.Type, codec OpaqueCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.opaque[t] = codec
	// descriptions computed before may have classified t differently
	r.descs = make(map[reflect.Type]*TypeDescription)
}

// Opaque returns the codec of an opaque leaf type.
func (r *Registry) Opaque(t reflect.Type) (OpaqueCodec, bool) {
	if t == nil {
		return OpaqueCodec{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.opaque[t]

	return codec, ok
}

// Shape classifies t like node.Dispatch, with registered opaque types as leaves.
func (r *Registry) Shape(t reflect.Type) node.DispatcherEnum {
	if _, ok := r.Opaque(t); ok {
		return node.DispatcherOpaque
	}

	return node.Dispatch(t)
}

// Resolve looks up a registered type by its fully qualified name.
func (r *Registry) Resolve(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]

	return t, ok
}

// NameOf returns "<package path>.<TypeName>" of t, looking through one
// pointer. Unnamed types have no name.
func (r *Registry) NameOf(t reflect.Type) string {
	return nameOf(t)
}

func nameOf(t reflect.Type) string {
	if t == nil {
		return ""
	}

	if t.Kind() == reflect.Ptr && t.Name() == "" {
		t = t.Elem()
	}

	if t.Name() == "" {
		return ""
	}

	if t.PkgPath() == "" {
		return t.Name()
	}

	return t.PkgPath() + "." + t.Name()
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Types returns all registered types sorted by name.
func (r *Registry) Types() []reflect.Type {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, 0, len(names))
	for _, name := range names {
		types = append(types, r.byName[name])
	}

	return types
}

// Implementations returns registered types assignable to iface, sorted by name.
func (r *Registry) Implementations(iface reflect.Type) []reflect.Type {
	var out []reflect.Type

	for _, t := range r.Types() {
		if t.AssignableTo(iface) {
			out = append(out, t)
		}
	}

	return out
}

// Suggest returns registered names close to an unknown name.
func (r *Registry) Suggest(name string) []string {
	return match.Suggest(name, r.Names(), 3)
}

// Describe returns the cached description of t.
func (r *Registry) Describe(t reflect.Type) *TypeDescription {
	r.mu.RLock()
	desc, ok := r.descs[t]
	r.mu.RUnlock()

	if ok {
		return desc
	}

	desc = r.describe(t)

	r.mu.Lock()
	r.descs[t] = desc
	r.mu.Unlock()

	return desc
}

// New builds a fresh instance of t: records are allocated (a pointer type
// yields a pointer to a new record) and initialized through Initializer,
// slices and maps are empty but non-nil, other types are zero.
func (r *Registry) New(t reflect.Type) reflect.Value {
	switch {
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		v := reflect.New(t.Elem())
		initialize(v)

		return v
	case t.Kind() == reflect.Struct:
		v := reflect.New(t)
		initialize(v)

		return v.Elem()
	case t.Kind() == reflect.Slice:
		return reflect.MakeSlice(t, 0, 0)
	case t.Kind() == reflect.Map:
		return reflect.MakeMap(t)
	}

	return reflect.New(t).Elem()
}

func initialize(ptr reflect.Value) {
	if in, ok := ptr.Interface().(Initializer); ok {
		in.Init()
	}
}
