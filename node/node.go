package node

import (
	"fmt"
	"math"
	"strconv"

	"datatables/primitive"
)

// TypeKey is the reserved object member that carries a type tag.
const TypeKey = "__type"

// Node is a format-neutral tree value: null, bool, number, string, array or
// object. Objects keep insertion order of their members.
//
// The nil *Node reads as Null.
type Node struct {
	kind   Kind
	b      bool
	text   string
	items  []*Node
	keys   []string
	fields map[string]*Node
}

func Null() *Node { return &Node{kind: KindNull} }

func Bool(b bool) *Node { return &Node{kind: KindBool, b: b} }

func String(s string) *Node { return &Node{kind: KindString, text: s} }

func Int(i int64) *Node { return &Node{kind: KindNumber, text: strconv.FormatInt(i, 10)} }

func Uint(u uint64) *Node { return &Node{kind: KindNumber, text: strconv.FormatUint(u, 10)} }

// Float builds a number node with narrowing applied: integral values are
// stored as integers. NaN and infinities are rejected.
func Float(f float64) (*Node, error) {
	text, err := primitive.NarrowFloat(f)
	if err != nil {
		return nil, err
	}

	return &Node{kind: KindNumber, text: text}, nil
}

// Number builds a number node from number text, canonicalizing it with the
// same narrowing as Float.
func Number(text string) (*Node, error) {
	if primitive.IsIntegerText(text) {
		return &Node{kind: KindNumber, text: text}, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("number %q: %w", text, primitive.ErrNotRepresentable)
	}

	return Float(f)
}

func Array(items ...*Node) *Node {
	return &Node{kind: KindArray, items: items}
}

func Object() *Node {
	return &Node{kind: KindObject, fields: make(map[string]*Node)}
}

func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}

	return n.kind
}

func (n *Node) IsNull() bool { return n.Kind() == KindNull }

func (n *Node) BoolValue() bool { return n != nil && n.b }

func (n *Node) StringValue() string {
	if n == nil || n.kind != KindString {
		return ""
	}

	return n.text
}

// NumberText returns the canonical text of a number node.
func (n *Node) NumberText() string {
	if n == nil || n.kind != KindNumber {
		return ""
	}

	return n.text
}

// IsInteger reports whether n is a number with an exact integer representation.
func (n *Node) IsInteger() bool {
	return n.Kind() == KindNumber && primitive.IsIntegerText(n.text)
}

func (n *Node) Int64() (int64, bool) {
	if n.Kind() != KindNumber {
		return 0, false
	}

	i, err := strconv.ParseInt(n.text, 10, 64)

	return i, err == nil
}

func (n *Node) Float64() (float64, bool) {
	if n.Kind() != KindNumber {
		return math.NaN(), false
	}

	f, err := strconv.ParseFloat(n.text, 64)

	return f, err == nil
}

// Items returns the elements of an array node.
func (n *Node) Items() []*Node {
	if n.Kind() != KindArray {
		return nil
	}

	return n.items
}

// Len returns the number of array elements or object members.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.keys)
	}

	return 0
}

func (n *Node) Append(item *Node) *Node {
	n.items = append(n.items, item)
	return n
}

// Keys returns the object member names in insertion order.
func (n *Node) Keys() []string {
	if n.Kind() != KindObject {
		return nil
	}

	return n.keys
}

func (n *Node) Get(key string) (*Node, bool) {
	if n.Kind() != KindObject {
		return nil, false
	}

	v, ok := n.fields[key]

	return v, ok
}

// Set adds or replaces a member. A replaced member keeps its position.
func (n *Node) Set(key string, value *Node) *Node {
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value

	return n
}

func (n *Node) Delete(key string) {
	if _, ok := n.fields[key]; !ok {
		return
	}

	delete(n.fields, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i:i], n.keys[i+1:]...)
			break
		}
	}
}

// TypeTag returns the string value of the __type member, if any.
func (n *Node) TypeTag() (string, bool) {
	v, ok := n.Get(TypeKey)
	if !ok || v.Kind() != KindString {
		return "", false
	}

	return v.text, true
}

// Equal compares two trees structurally. Object member order is ignored.
func Equal(a, b *Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}

	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString, KindNumber:
		return a.text == b.text
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}

		return true
	case KindObject:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			bv, ok := b.fields[k]
			if !ok || !Equal(a.fields[k], bv) {
				return false
			}
		}

		return true
	}

	return false
}
