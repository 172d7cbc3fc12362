package codec

import (
	"errors"
	"fmt"
	"reflect"

	"datatables/node"
	"datatables/registry"

	"go.uber.org/zap"
)

// ErrShape is returned when the top-level node cannot be decoded into the requested type.
var ErrShape = errors.New("node does not fit type")

// Codec serializes and deserializes values of types known to a registry.
type Codec struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(reg *registry.Registry, opts ...Option) *Codec {
	c := &Codec{
		reg:    reg,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Registry returns the registry the codec resolves types with.
func (c *Codec) Registry() *registry.Registry {
	return c.reg
}

// scope is the static context of one slot during a walk.
type scope struct {
	// static is the declared type of the slot.
	static reflect.Type
	// annotate requests tags on every nested object.
	annotate bool
	// tag requests a tag on this value and its direct elements.
	tag bool
	// depth is 0 for the top-level value.
	depth int
	path  string
}

func (s scope) member(name string, static reflect.Type, tag bool) scope {
	path := name
	if s.path != "" {
		path = s.path + "." + name
	}

	return scope{static: static, annotate: s.annotate, tag: tag, depth: s.depth + 1, path: path}
}

func (s scope) element(key string, static reflect.Type) scope {
	return scope{static: static, annotate: s.annotate, tag: s.tag, depth: s.depth + 1, path: s.path + "[" + key + "]"}
}

func (s scope) typeName() string {
	return node.TypeString(s.static)
}

// Marshal serializes v and renders it as indented JSON text.
func (c *Codec) Marshal(v any, annotate bool) ([]byte, error) {
	n, diags := c.Serialize(v, annotate)
	if err := diags.Error(); err != nil {
		return nil, err
	}

	return node.Marshal(n, "  ")
}

// Unmarshal parses JSON text and decodes it into the value ptr points to.
func (c *Codec) Unmarshal(data []byte, ptr any) error {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Ptr || pv.IsNil() {
		return fmt.Errorf("unmarshal into %T: need a non-nil pointer", ptr)
	}

	n, err := node.Parse(data)
	if err != nil {
		return err
	}

	v, diags := c.Deserialize(n, pv.Type().Elem())
	if !v.IsValid() {
		return fmt.Errorf("%w: %w", ErrShape, diags.Error())
	}

	pv.Elem().Set(v)

	return nil
}

// Decode deserializes n into a T. Partial-data problems are logged, only a
// top-level failure is returned.
func Decode[T any](c *Codec, n *node.Node) (T, error) {
	var zero T

	v, diags := c.Deserialize(n, reflect.TypeFor[T]())
	if !v.IsValid() {
		return zero, fmt.Errorf("%w: %w", ErrShape, diags.Error())
	}

	out, _ := v.Interface().(T)

	return out, nil
}
