package node

import (
	"datatables/primitive"
	"reflect"
)

// Dispatch classifies a declared type into the shape the codec and the
// reconciler switch on. Opaque leaves are decided by the type registry, not here.
//
// Pointers are only supported as references to records (pointer to struct).
func Dispatch(t reflect.Type) DispatcherEnum {
	if t == nil {
		return DispatcherUnknown
	}

	if primitive.FromReflectType(t) != 0 {
		return DispatcherPrimitive
	}

	switch t.Kind() {
	case reflect.Interface:
		return DispatcherInterface
	case reflect.Slice:
		return DispatcherSlice
	case reflect.Map:
		return DispatcherMap
	case reflect.Struct:
		return DispatcherStruct
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct {
			return DispatcherPointer
		}
	}

	return DispatcherUnknown
}

// IsNil reports whether v holds the null value of its shape: an invalid
// value, or a nil pointer, interface, slice or map. Interfaces are looked
// through, so an interface holding a nil pointer is null.
func IsNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || IsNil(v.Elem())
	case reflect.Ptr, reflect.Slice, reflect.Map:
		return v.IsNil()
	}

	return false
}

// Runtime unwraps interface values to the concrete value they hold.
// A nil interface yields an invalid value.
func Runtime(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}

	return v
}
