package analyze

import (
	"strings"
)

// TypePath builds a readable path string for a member.
// Examples:
//   - "Effects" for a field
//   - "Effects[]" for the elements of a slice field
//   - "Stats{}" for the values of a map field
//   - "Loot[].Drops{}.Weight" for a field nested in both
type TypePath struct {
	parts []string
}

// NewTypePath creates a new TypePath from a root name.
func NewTypePath(root string) *TypePath {
	if root == "" {
		return &TypePath{}
	}

	return &TypePath{
		parts: []string{root},
	}
}

// Field appends a field name to the path.
func (p *TypePath) Field(name string) *TypePath {
	return &TypePath{
		parts: append(append([]string{}, p.parts...), name),
	}
}

// Slice appends a slice indicator "[]" to the path.
func (p *TypePath) Slice() *TypePath {
	return p.suffix("[]")
}

// Map appends a map value indicator "{}" to the path.
func (p *TypePath) Map() *TypePath {
	return p.suffix("{}")
}

func (p *TypePath) suffix(s string) *TypePath {
	if len(p.parts) == 0 {
		return &TypePath{parts: []string{s}}
	}
	newParts := make([]string, len(p.parts))
	copy(newParts, p.parts)
	newParts[len(newParts)-1] += s

	return &TypePath{parts: newParts}
}

// String returns the full path string.
func (p *TypePath) String() string {
	return strings.Join(p.parts, ".")
}

// TypeString returns a short, readable Go spelling of t.
func TypeString(t *TypeInfo) string {
	if t == nil {
		return "<nil>"
	}

	if t.IsNamed() {
		if t.Kind == TypeKindExternal {
			return t.ID.String()
		}
		return t.ID.Name
	}

	switch t.Kind {
	case TypeKindPointer:
		return "*" + TypeString(t.ElemType)
	case TypeKindSlice:
		return "[]" + TypeString(t.ElemType)
	case TypeKindMap:
		return "map[" + TypeString(t.KeyType) + "]" + TypeString(t.ElemType)
	case TypeKindChan:
		return "chan " + TypeString(t.ElemType)
	case TypeKindStruct:
		return "struct{...}"
	default:
		if t.GoType != nil {
			return t.GoType.String()
		}
		return "<" + t.Kind.String() + ">"
	}
}
