package codec

import (
	"fmt"
	"reflect"
	"sort"

	"datatables/internal/diagnostic"
	"datatables/node"
	"datatables/options"
	"datatables/primitive"
	"datatables/registry"
)

// EncodeOptions control Encode.
type EncodeOptions struct {
	// Annotate tags every nested object with its runtime type.
	Annotate bool
	// OnReference is called with the path of every opaque resource handle written.
	OnReference func(path string)
}

type encoder struct {
	c        *Codec
	opts     EncodeOptions
	diags    *diagnostic.Diagnostics
	visiting map[uintptr]struct{}
}

// Serialize converts value to a node tree. The top-level object is never tagged.
func (c *Codec) Serialize(value any, annotate bool) (*node.Node, *diagnostic.Diagnostics) {
	return c.Encode(value, EncodeOptions{Annotate: annotate})
}

// Encode is Serialize with resource reference reporting.
func (c *Codec) Encode(value any, opts EncodeOptions) (*node.Node, *diagnostic.Diagnostics) {
	v := reflect.ValueOf(value)

	var static reflect.Type
	if v.IsValid() {
		static = v.Type()
	}

	return c.EncodeValue(v, static, opts)
}

// EncodeValue converts v held in a slot of the given static type.
func (c *Codec) EncodeValue(v reflect.Value, static reflect.Type, opts EncodeOptions) (*node.Node, *diagnostic.Diagnostics) {
	e := &encoder{
		c:        c,
		opts:     opts,
		diags:    &diagnostic.Diagnostics{},
		visiting: make(map[uintptr]struct{}),
	}

	n := e.encode(v, scope{static: static, annotate: opts.Annotate})
	if n == nil {
		n = node.Null()
	}

	e.diags.Log(c.logger)

	return n, e.diags
}

// encode returns nil for values that cannot be written.
func (e *encoder) encode(v reflect.Value, s scope) *node.Node {
	if node.IsNil(v) {
		return node.Null()
	}

	rv := node.Runtime(v)
	rt := rv.Type()

	switch e.c.reg.Shape(rt) {
	case node.DispatcherOpaque:
		return e.encodeOpaque(rv, s)
	case node.DispatcherPrimitive:
		return e.encodePrimitive(rv, s)
	case node.DispatcherSlice:
		return e.encodeSlice(rv, s)
	case node.DispatcherMap:
		return e.encodeMap(rv, s)
	case node.DispatcherStruct, node.DispatcherPointer:
		return e.encodeRecord(rv, s)
	}

	e.diags.AddWarning(diagnostic.CodeUnsupportedShape,
		fmt.Sprintf("cannot serialize %s", node.TypeString(rt)), s.typeName(), s.path)

	return nil
}

func (e *encoder) encodeOpaque(v reflect.Value, s scope) *node.Node {
	codec, _ := e.c.reg.Opaque(v.Type())

	n, err := codec.Encode(v)
	if err != nil {
		e.diags.AddWarning(diagnostic.CodeOpaqueCodec, err.Error(), node.TypeString(v.Type()), s.path)
		return nil
	}

	if ref, ok := v.Interface().(registry.Referencer); ok && e.opts.OnReference != nil {
		e.opts.OnReference(ref.ResourcePath())
	}

	return n
}

func (e *encoder) encodePrimitive(v reflect.Value, s scope) *node.Node {
	switch primitive.FromReflectType(v.Type()) {
	case primitive.KindBool:
		return node.Bool(v.Bool())
	case primitive.KindString:
		return node.String(v.String())
	}

	text, err := primitive.FormatNumber(v)
	if err == nil {
		var n *node.Node
		if n, err = node.Number(text); err == nil {
			return n
		}
	}

	e.diags.AddWarning(diagnostic.CodeNumberRange, err.Error(), node.TypeString(v.Type()), s.path)

	return nil
}

func (e *encoder) encodeSlice(v reflect.Value, s scope) *node.Node {
	arr := node.Array()
	elem := v.Type().Elem()

	for i := range v.Len() {
		item := e.encode(v.Index(i), s.element(fmt.Sprint(i), elem))
		if item == nil {
			item = node.Null()
		}
		arr.Append(item)
	}

	return arr
}

func (e *encoder) encodeMap(v reflect.Value, s scope) *node.Node {
	obj := node.Object()
	rt := v.Type()

	if !primitive.FromReflectType(rt.Key()).IsKeyDomain() {
		e.diags.AddWarning(diagnostic.CodeUnsupportedKey,
			fmt.Sprintf("map key %s is not a string or number", node.TypeString(rt.Key())), node.TypeString(rt), s.path)
		return obj
	}

	type entry struct {
		key   string
		value reflect.Value
	}

	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, _ := primitive.FormatKey(iter.Key())
		entries = append(entries, entry{key: key, value: iter.Value()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	untyped := s.static == nil || s.static.Kind() == reflect.Interface

	for _, en := range entries {
		if untyped && en.key == node.TypeKey {
			e.diags.AddWarning(diagnostic.CodeUnsupportedKey,
				"key "+node.TypeKey+" is reserved in maps held by interface slots", node.TypeString(rt), s.path)
			continue
		}

		if node.IsNil(en.value) {
			obj.Set(en.key, node.Null())
			continue
		}

		if item := e.encode(en.value, s.element(en.key, rt.Elem())); item != nil {
			obj.Set(en.key, item)
		}
	}

	return obj
}

func (e *encoder) encodeRecord(v reflect.Value, s scope) *node.Node {
	record := v
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return node.Null()
		}

		addr := v.Pointer()
		if _, cycle := e.visiting[addr]; cycle {
			e.diags.AddWarning(diagnostic.CodeUnsupportedShape,
				"cycle through "+node.TypeString(v.Type()), s.typeName(), s.path)
			return nil
		}

		e.visiting[addr] = struct{}{}
		defer delete(e.visiting, addr)

		record = v.Elem()
	}

	obj := node.Object()

	if s.depth > 0 && e.needsTag(v.Type(), s) {
		name := e.c.reg.NameOf(v.Type())
		if _, ok := e.c.reg.Resolve(name); !ok {
			e.diags.AddWarning(diagnostic.CodeUnknownType,
				"type "+name+" is not registered and will not decode", name, s.path)
		}
		obj.Set(node.TypeKey, node.String(name))
	}

	desc := e.c.reg.Describe(v.Type())
	for i := range desc.Members {
		m := &desc.Members[i]
		if !m.Serialized() {
			continue
		}

		field := m.Field(record)
		if node.IsNil(field) {
			continue
		}

		if item := e.encode(field, s.member(m.WireName, m.Type, m.Flags.Has(options.FlagAnnotate))); item != nil && !item.IsNull() {
			obj.Set(m.WireName, item)
		}
	}

	return obj
}

func (e *encoder) needsTag(rt reflect.Type, s scope) bool {
	return s.annotate || s.tag || s.static == nil || s.static.Kind() == reflect.Interface || s.static != rt
}
