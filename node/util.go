package node

import (
	"reflect"
	"strconv"
)

// TypeString renders t fully qualified, for diagnostics.
func TypeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	// fully qualified named types, or builtin string for basics
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + TypeString(t.Elem())
	case reflect.Slice:
		if t.Name() == "" {
			return "[]" + TypeString(t.Elem())
		}
	case reflect.Array:
		if t.Name() == "" {
			return "[" + strconv.Itoa(t.Len()) + "]" + TypeString(t.Elem())
		}
	case reflect.Map:
		if t.Name() == "" {
			return "map[" + TypeString(t.Key()) + "]" + TypeString(t.Elem())
		}
	}

	if t.PkgPath() == "" {
		return t.String()
	}

	return t.PkgPath() + "." + t.Name()
}
