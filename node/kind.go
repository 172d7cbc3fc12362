package node

type DispatcherEnum int

const (
	DispatcherUnknown DispatcherEnum = iota
	DispatcherPrimitive
	DispatcherOpaque
	DispatcherInterface
	DispatcherSlice
	DispatcherMap
	DispatcherStruct
	DispatcherPointer

	// DispatcherTotal is a constant that represents the total number of kinds defined
	DispatcherTotal = int(iota)
)

func (d DispatcherEnum) String() string {
	switch d {
	case DispatcherPrimitive:
		return "primitive"
	case DispatcherOpaque:
		return "opaque"
	case DispatcherInterface:
		return "interface"
	case DispatcherSlice:
		return "slice"
	case DispatcherMap:
		return "map"
	case DispatcherStruct:
		return "struct"
	case DispatcherPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// IsLeaf reports whether values of this shape are copied as a whole and never traversed.
func (d DispatcherEnum) IsLeaf() bool {
	return d == DispatcherPrimitive || d == DispatcherOpaque
}

// Kind discriminates the Node union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}
