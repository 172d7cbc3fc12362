package codec

import (
	"fmt"
	"reflect"

	"datatables/internal/diagnostic"
	"datatables/node"
	"datatables/primitive"
)

type decoder struct {
	c     *Codec
	diags *diagnostic.Diagnostics
}

// Deserialize builds a value of static type from n. The result is invalid
// only when the top-level node cannot be decoded at all; the reason is then
// reported as an error diagnostic.
func (c *Codec) Deserialize(n *node.Node, static reflect.Type) (reflect.Value, *diagnostic.Diagnostics) {
	d := &decoder{c: c, diags: &diagnostic.Diagnostics{}}

	if static == nil {
		d.diags.AddError(diagnostic.CodeUnknownType, "no static type to decode into", "", "")
		return reflect.Value{}, d.diags
	}

	v, ok := d.decode(n, scope{static: static})
	if !ok {
		d.diags.AddError(diagnostic.CodeShapeMismatch,
			fmt.Sprintf("cannot decode %s node as %s", n.Kind(), node.TypeString(static)), node.TypeString(static), "")
		v = reflect.Value{}
	}

	d.diags.Log(c.logger)

	return v, d.diags
}

// decode returns a value of exactly s.static.
func (d *decoder) decode(n *node.Node, s scope) (reflect.Value, bool) {
	out := reflect.New(s.static).Elem()
	if n.IsNull() {
		return out, true
	}

	t, ok := d.resolve(n, s)
	if !ok {
		return reflect.Value{}, false
	}

	v, ok := d.decodeAs(n, t, s)
	if !ok {
		return reflect.Value{}, false
	}

	out.Set(v)

	return out, true
}

// resolve picks the type to build: the tag, the inferred type for
// untagged values in interface slots, or the static type. Tags are only
// read in interface and record slots.
func (d *decoder) resolve(n *node.Node, s scope) (reflect.Type, bool) {
	if name, tagged := n.TypeTag(); tagged && d.readsTag(s.static) {
		t, ok := d.c.reg.Resolve(name)
		if !ok {
			d.diags.AddWarning(diagnostic.CodeUnknownType, "unknown type "+name, s.typeName(), s.path)
			if suggestions := d.c.reg.Suggest(name); len(suggestions) > 0 {
				d.diags.AddSuggestions(diagnostic.DiagnosticWarning, suggestions...)
			}

			return nil, false
		}

		// T and *T share a name; a concrete slot decides which one to build
		if s.static.Kind() != reflect.Interface && d.c.reg.NameOf(s.static) == name {
			return s.static, true
		}

		if !t.AssignableTo(s.static) {
			d.diags.AddWarning(diagnostic.CodeTypeNotAssignable,
				fmt.Sprintf("%s is not assignable to %s", name, s.typeName()), s.typeName(), s.path)

			return nil, false
		}

		return t, true
	}

	if s.static.Kind() != reflect.Interface {
		return s.static, true
	}

	var t reflect.Type

	switch n.Kind() {
	case node.KindBool:
		t = reflect.TypeFor[bool]()
	case node.KindString:
		t = reflect.TypeFor[string]()
	case node.KindNumber:
		if v, err := primitive.Narrow(n.NumberText()); err == nil {
			t = reflect.TypeOf(v)
		}
	case node.KindArray:
		t = reflect.TypeFor[[]any]()
	case node.KindObject:
		t = reflect.TypeFor[map[string]any]()
	}

	if t == nil || !t.AssignableTo(s.static) {
		d.diags.AddWarning(diagnostic.CodeTypeNotAssignable,
			fmt.Sprintf("untagged %s cannot fill %s", n.Kind(), s.typeName()), s.typeName(), s.path)

		return nil, false
	}

	return t, true
}

func (d *decoder) readsTag(static reflect.Type) bool {
	switch d.c.reg.Shape(static) {
	case node.DispatcherInterface, node.DispatcherStruct, node.DispatcherPointer:
		return true
	}

	return false
}

func (d *decoder) decodeAs(n *node.Node, t reflect.Type, s scope) (reflect.Value, bool) {
	switch d.c.reg.Shape(t) {
	case node.DispatcherOpaque:
		codec, _ := d.c.reg.Opaque(t)

		v, err := codec.Decode(n, t)
		if err != nil {
			d.diags.AddWarning(diagnostic.CodeOpaqueCodec, err.Error(), node.TypeString(t), s.path)
			return reflect.Value{}, false
		}

		return v, true
	case node.DispatcherPrimitive:
		return d.decodePrimitive(n, t, s)
	case node.DispatcherSlice:
		return d.decodeSlice(n, t, s)
	case node.DispatcherMap:
		return d.decodeMap(n, t, s)
	case node.DispatcherStruct, node.DispatcherPointer:
		return d.decodeRecord(n, t, s)
	}

	d.diags.AddWarning(diagnostic.CodeUnsupportedShape,
		"cannot deserialize "+node.TypeString(t), node.TypeString(t), s.path)

	return reflect.Value{}, false
}

func (d *decoder) mismatch(n *node.Node, t reflect.Type, s scope) (reflect.Value, bool) {
	d.diags.AddWarning(diagnostic.CodeShapeMismatch,
		fmt.Sprintf("%s node does not fit %s", n.Kind(), node.TypeString(t)), node.TypeString(t), s.path)

	return reflect.Value{}, false
}

func (d *decoder) decodePrimitive(n *node.Node, t reflect.Type, s scope) (reflect.Value, bool) {
	kind := primitive.FromReflectType(t)
	out := reflect.New(t).Elem()

	switch {
	case kind == primitive.KindBool && n.Kind() == node.KindBool:
		out.SetBool(n.BoolValue())
	case kind == primitive.KindString && n.Kind() == node.KindString:
		out.SetString(n.StringValue())
	case kind.IsNumber() && n.Kind() == node.KindNumber:
		v, err := primitive.ParseNumber(n.NumberText(), t)
		if err != nil {
			d.diags.AddWarning(diagnostic.CodeNumberRange, err.Error(), node.TypeString(t), s.path)
			return reflect.Value{}, false
		}

		return v, true
	default:
		return d.mismatch(n, t, s)
	}

	return out, true
}

func (d *decoder) decodeSlice(n *node.Node, t reflect.Type, s scope) (reflect.Value, bool) {
	if n.Kind() != node.KindArray {
		return d.mismatch(n, t, s)
	}

	items := n.Items()
	out := reflect.MakeSlice(t, 0, len(items))

	for i, item := range items {
		v, ok := d.decode(item, s.element(fmt.Sprint(i), t.Elem()))
		if !ok {
			continue
		}
		out = reflect.Append(out, v)
	}

	return out, true
}

func (d *decoder) decodeMap(n *node.Node, t reflect.Type, s scope) (reflect.Value, bool) {
	out := reflect.MakeMap(t)

	if !primitive.FromReflectType(t.Key()).IsKeyDomain() {
		d.diags.AddWarning(diagnostic.CodeUnsupportedKey,
			fmt.Sprintf("map key %s is not a string or number", node.TypeString(t.Key())), node.TypeString(t), s.path)

		return out, true
	}

	if n.Kind() != node.KindObject {
		return d.mismatch(n, t, s)
	}

	// a typed map owns every key, the tag key included
	for _, key := range n.Keys() {
		k, err := primitive.ParseKey(key, t.Key())
		if err != nil {
			d.diags.AddWarning(diagnostic.CodeUnsupportedKey, err.Error(), node.TypeString(t), s.path)
			continue
		}

		item, _ := n.Get(key)

		v, ok := d.decode(item, s.element(key, t.Elem()))
		if !ok {
			continue
		}
		out.SetMapIndex(k, v)
	}

	return out, true
}

func (d *decoder) decodeRecord(n *node.Node, t reflect.Type, s scope) (reflect.Value, bool) {
	if n.Kind() != node.KindObject {
		return d.mismatch(n, t, s)
	}

	out := d.c.reg.New(t)

	record := out
	if t.Kind() == reflect.Ptr {
		record = out.Elem()
	}

	desc := d.c.reg.Describe(t)
	for _, key := range n.Keys() {
		if key == node.TypeKey {
			continue
		}

		m, ok := desc.Member(key)
		if !ok || !m.Serialized() {
			d.diags.AddInfo(diagnostic.CodeUnknownMember, "ignored member "+key, desc.Name, joinPath(s.path, key))
			continue
		}

		item, _ := n.Get(key)

		v, ok := d.decode(item, s.member(m.WireName, m.Type, false))
		if !ok {
			continue
		}
		m.Field(record).Set(v)
	}

	return out, true
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}

	return path + "." + name
}
