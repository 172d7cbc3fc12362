// Package analyze lints row types without running them.
//
// It loads packages with golang.org/x/tools/go/packages, builds an in-memory
// TypeGraph from go/types and reports row types (structs embedding
// table.RowBase) whose members cannot be stored in a table file: channels,
// funcs, arrays, complex numbers and maps keyed by anything but strings and
// numbers.
//
// Key types:
//   - TypeID: package import path + type name
//   - TypeInfo: kind, element, key and field information of one type
//   - FieldInfo: field name, type, tag and embedding
package analyze
