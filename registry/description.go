package registry

import (
	"reflect"

	"datatables/node"
	"datatables/options"
)

// Member describes one serializable slot of a record.
type Member struct {
	// Name is the Go field name.
	Name string
	// WireName is the object key used in text, Name unless renamed by the tag.
	WireName string
	// Index is the field index path, suitable for reflect.Value.FieldByIndex.
	Index []int
	Type  reflect.Type
	Shape node.DispatcherEnum
	Flags options.FlagEnum

	CanRead  bool
	CanWrite bool
}

// Ignored reports whether the member takes no part in serialization or merge.
func (m *Member) Ignored() bool { return m.Flags.Has(options.FlagIgnored) }

// Serialized reports whether the member is written to text.
func (m *Member) Serialized() bool {
	return !m.Flags.Has(options.FlagIgnored) && !m.Flags.Has(options.FlagHidden)
}

// TypeDescription is the cached view of a type the codec and the reconciler work from.
type TypeDescription struct {
	Type  reflect.Type
	Name  string
	Shape node.DispatcherEnum

	// Members lists exported fields of records in declaration order, fields
	// promoted from embedded structs flattened in place.
	Members []Member

	byName map[string]int
}

// Member looks a member up by wire name, then by Go field name.
func (d *TypeDescription) Member(name string) (*Member, bool) {
	if i, ok := d.byName[name]; ok {
		return &d.Members[i], true
	}

	for i := range d.Members {
		if d.Members[i].Name == name {
			return &d.Members[i], true
		}
	}

	return nil, false
}

// Field returns the member's slot in a record value (the struct, not a pointer).
func (m *Member) Field(record reflect.Value) reflect.Value {
	return record.FieldByIndex(m.Index)
}

func (r *Registry) describe(t reflect.Type) *TypeDescription {
	desc := &TypeDescription{
		Type:   t,
		Name:   r.NameOf(t),
		Shape:  r.Shape(t),
		byName: make(map[string]int),
	}

	st := t
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}

	if st.Kind() != reflect.Struct || desc.Shape == node.DispatcherOpaque {
		return desc
	}

	for _, f := range reflect.VisibleFields(st) {
		if !f.IsExported() || !reachable(st, f.Index) {
			continue
		}

		// embedded records are flattened: their promoted fields follow.
		// Embedded pointers are skipped along with their fields.
		if f.Anonymous && r.Shape(f.Type) == node.DispatcherStruct || f.Anonymous && f.Type.Kind() == reflect.Ptr {
			continue
		}

		wire, flags := options.ParseTag(f.Tag.Get("dt"))
		if f.Tag.Get("json") == "-" {
			flags |= options.FlagIgnored
		}
		if wire == "" {
			wire = f.Name
		}

		m := Member{
			Name:     f.Name,
			WireName: wire,
			Index:    f.Index,
			Type:     f.Type,
			Shape:    r.Shape(f.Type),
			Flags:    flags,
			CanRead:  true,
			CanWrite: true,
		}

		if _, dup := desc.byName[wire]; dup {
			continue
		}

		desc.byName[wire] = len(desc.Members)
		desc.Members = append(desc.Members, m)
	}

	return desc
}

// reachable reports whether the field path never passes through an embedded
// pointer, so FieldByIndex on a zero record cannot panic.
func reachable(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Struct {
			return false
		}
		t = f.Type
	}

	return true
}
