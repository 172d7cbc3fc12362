package reconcile

import (
	"fmt"
	"reflect"

	"datatables/node"
)

// Merge makes the record target points to equal to the record source points
// to, in place. Both must be non-nil pointers to records of the same type.
func (r *Reconciler) Merge(target, source any) error {
	tv, sv := reflect.ValueOf(target), reflect.ValueOf(source)
	if !tv.IsValid() || !sv.IsValid() {
		return r.mismatch("merge with nil interface", reflect.TypeOf(target), reflect.TypeOf(source))
	}

	if tv.Type() != sv.Type() || r.reg.Shape(tv.Type()) != node.DispatcherPointer {
		return r.mismatch("merge of mismatched records", tv.Type(), sv.Type())
	}

	if tv.IsNil() || sv.IsNil() {
		return fmt.Errorf("%w: nil %s", ErrTypeMismatch, node.TypeString(tv.Type()))
	}

	if tv.Pointer() != sv.Pointer() {
		r.mergeRecord(tv.Elem(), sv.Elem())
	}

	return nil
}

// MergeList merges source into target element by element and returns the
// resulting slice, which may share target's backing array.
func (r *Reconciler) MergeList(target, source reflect.Value) (reflect.Value, error) {
	if target.Type() != source.Type() || target.Kind() != reflect.Slice {
		return reflect.Value{}, r.mismatch("merge of mismatched lists", target.Type(), source.Type())
	}

	return r.mergeList(target, source), nil
}

// MergeMap merges source into target in place.
func (r *Reconciler) MergeMap(target, source reflect.Value) error {
	if target.Type() != source.Type() || target.Kind() != reflect.Map {
		return r.mismatch("merge of mismatched maps", target.Type(), source.Type())
	}

	if target.IsNil() {
		return fmt.Errorf("%w: nil target %s", ErrTypeMismatch, node.TypeString(target.Type()))
	}

	r.mergeMap(target, source)

	return nil
}

// mergeRecord merges two addressable records of the same type. Ignored
// members are left alone, hidden members are merged.
func (r *Reconciler) mergeRecord(target, source reflect.Value) {
	desc := r.reg.Describe(target.Type())
	for i := range desc.Members {
		m := &desc.Members[i]
		if m.Ignored() {
			continue
		}

		r.mergeSlot(m.Field(target), m.Field(source))
	}
}

// mergeSlot applies the per-member decision tree to a settable slot.
func (r *Reconciler) mergeSlot(target, source reflect.Value) {
	if node.IsNil(source) {
		target.Set(reflect.Zero(target.Type()))
		return
	}

	tv, sv := node.Runtime(target), node.Runtime(source)
	if !sv.IsValid() || node.IsNil(sv) {
		target.Set(reflect.Zero(target.Type()))
		return
	}
	if !tv.IsValid() || tv.Type() != sv.Type() {
		target.Set(r.CloneValue(source))
		return
	}

	if r.isLeaf(sv.Type()) {
		target.Set(source)
		return
	}

	if node.IsNil(tv) {
		target.Set(r.CloneValue(source))
		return
	}

	switch r.reg.Shape(sv.Type()) {
	case node.DispatcherSlice:
		target.Set(r.mergeList(tv, sv))

	case node.DispatcherMap:
		r.mergeMap(tv, sv)

	case node.DispatcherPointer:
		if tv.Pointer() != sv.Pointer() {
			r.mergeRecord(tv.Elem(), sv.Elem())
		}

	case node.DispatcherStruct:
		if target.Kind() == reflect.Struct {
			r.mergeRecord(target, sv)
			return
		}

		// records held by value in interface slots are not addressable
		tmp := reflect.New(tv.Type()).Elem()
		tmp.Set(tv)
		r.mergeRecord(tmp, sv)
		target.Set(tmp)
	}
}

func (r *Reconciler) mergeList(target, source reflect.Value) reflect.Value {
	out := target

	for i := range source.Len() {
		if i >= out.Len() {
			out = reflect.Append(out, r.CloneValue(source.Index(i)))
			continue
		}

		r.mergeSlot(out.Index(i), source.Index(i))
	}

	// zero the dropped tail so the backing array does not pin it
	for j := source.Len(); j < out.Len(); j++ {
		out.Index(j).Set(reflect.Zero(out.Type().Elem()))
	}

	return out.Slice(0, source.Len())
}

func (r *Reconciler) mergeMap(target, source reflect.Value) {
	elem := target.Type().Elem()

	iter := source.MapRange()
	for iter.Next() {
		key, value := iter.Key(), iter.Value()

		existing := target.MapIndex(key)
		if !existing.IsValid() {
			target.SetMapIndex(key, r.CloneValue(value))
			continue
		}

		slot := reflect.New(elem).Elem()
		slot.Set(existing)
		r.mergeSlot(slot, value)
		target.SetMapIndex(key, slot)
	}

	var stale []reflect.Value

	keys := target.MapRange()
	for keys.Next() {
		if !source.MapIndex(keys.Key()).IsValid() {
			stale = append(stale, keys.Key())
		}
	}

	for _, key := range stale {
		target.SetMapIndex(key, reflect.Value{})
	}
}
