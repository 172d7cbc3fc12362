package reconcile

import (
	"reflect"

	"datatables/node"
)

// Clone returns a deep copy of v. Records are built through the registry
// factory. Pointers shared inside v stay shared in the copy.
func (r *Reconciler) Clone(v any) any {
	out := r.CloneValue(reflect.ValueOf(v))
	if !out.IsValid() {
		return nil
	}

	return out.Interface()
}

// Clone is the typed form of Reconciler.Clone.
func Clone[T any](r *Reconciler, v T) T {
	out, _ := r.CloneValue(reflect.ValueOf(&v).Elem()).Interface().(T)
	return out
}

// CloneValue returns a deep copy of v with the same type.
func (r *Reconciler) CloneValue(v reflect.Value) reflect.Value {
	return r.clone(v, make(map[uintptr]reflect.Value))
}

func (r *Reconciler) clone(v reflect.Value, seen map[uintptr]reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	if node.IsNil(v) {
		return reflect.Zero(v.Type())
	}

	if v.Kind() == reflect.Interface {
		out := reflect.New(v.Type()).Elem()
		out.Set(r.clone(v.Elem(), seen))

		return out
	}

	switch r.reg.Shape(v.Type()) {
	case node.DispatcherSlice:
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(r.clone(v.Index(i), seen))
		}

		return out

	case node.DispatcherMap:
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), r.clone(iter.Value(), seen))
		}

		return out

	case node.DispatcherPointer:
		if out, ok := seen[v.Pointer()]; ok {
			return out
		}

		out := r.reg.New(v.Type())
		seen[v.Pointer()] = out
		r.cloneMembers(out.Elem(), v.Elem(), seen)

		return out

	case node.DispatcherStruct:
		out := reflect.New(v.Type())
		out.Elem().Set(r.reg.New(v.Type()))
		r.cloneMembers(out.Elem(), v, seen)

		return out.Elem()
	}

	// primitives and opaque leaves are copied by value or shared by reference
	return v
}

func (r *Reconciler) cloneMembers(dst, src reflect.Value, seen map[uintptr]reflect.Value) {
	desc := r.reg.Describe(src.Type())
	for i := range desc.Members {
		m := &desc.Members[i]
		m.Field(dst).Set(r.clone(m.Field(src), seen))
	}
}
