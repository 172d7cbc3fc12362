package registry

import (
	"fmt"
	"reflect"
	"time"

	"datatables/node"
)

// OpaqueCodec converts an opaque leaf type to and from a node.
// Opaque values are never traversed: the reconciler copies them by reference.
type OpaqueCodec struct {
	Encode func(v reflect.Value) (*node.Node, error)
	Decode func(n *node.Node, t reflect.Type) (reflect.Value, error)
}

// Referencer is implemented by opaque handles to external resources.
// The codec reports ResourcePath of every handle it writes.
type Referencer interface {
	ResourcePath() string
}

// Initializer is implemented by records that need more than the zero value.
// New calls Init on every instance it builds.
type Initializer interface {
	Init()
}

var timeCodec = OpaqueCodec{
	Encode: func(v reflect.Value) (*node.Node, error) {
		return node.String(v.Interface().(time.Time).Format(time.RFC3339Nano)), nil
	},
	Decode: func(n *node.Node, t reflect.Type) (reflect.Value, error) {
		if n.Kind() != node.KindString {
			return reflect.Value{}, fmt.Errorf("time: expected string, got %s", n.Kind())
		}

		ts, err := time.Parse(time.RFC3339Nano, n.StringValue())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("time: %w", err)
		}

		return reflect.ValueOf(ts).Convert(t), nil
	},
}

// PathCodec builds a codec for handle types that are fully described by a
// resource path. open builds the handle for a path read from a file.
func PathCodec[T Referencer](open func(path string) T) OpaqueCodec {
	return OpaqueCodec{
		Encode: func(v reflect.Value) (*node.Node, error) {
			ref, ok := v.Interface().(Referencer)
			if !ok {
				return nil, fmt.Errorf("%s does not reference a resource", v.Type())
			}

			return node.String(ref.ResourcePath()), nil
		},
		Decode: func(n *node.Node, t reflect.Type) (reflect.Value, error) {
			if n.Kind() != node.KindString {
				return reflect.Value{}, fmt.Errorf("%s: expected resource path, got %s", t, n.Kind())
			}

			return reflect.ValueOf(open(n.StringValue())), nil
		},
	}
}
