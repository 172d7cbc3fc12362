package table

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"datatables/codec"
	"datatables/internal/diagnostic"
	"datatables/node"
)

// File keys.
const (
	KeyStructType    = "StructType"
	KeyStructEntries = "StructEntries"
	KeyEntryCounter  = "__entryCounter"
	KeyReferences    = "__references"
	KeyVersion       = "__version"
)

// KeyStem prefixes generated row keys.
const KeyStem = "NewEntry_"

// ErrFormat is returned for documents that are not data tables.
var ErrFormat = errors.New("not a data table")

// Encode renders t as a resource file.
func (s *Service) Encode(t *Table) ([]byte, error) {
	data, _, err := s.encode(t)
	return data, err
}

func (s *Service) encode(t *Table) ([]byte, []string, error) {
	if t.schema == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, t.SchemaType)
	}

	rows, refs, diags := s.EncodeRows(t.schema, t.Entries, false)
	if err := diags.Error(); err != nil {
		return nil, nil, err
	}

	refNodes := make([]*node.Node, len(refs))
	for i, ref := range refs {
		refNodes[i] = node.String(ref)
	}

	root := node.Object().
		Set(KeyStructType, node.String(t.SchemaType)).
		Set(KeyStructEntries, rows).
		Set(KeyEntryCounter, node.Int(int64(t.EntryCounter))).
		Set(KeyReferences, node.Array(refNodes...)).
		Set(KeyVersion, node.Int(CurrentVersion))

	data, err := node.Marshal(root, "  ")
	if err != nil {
		return nil, nil, err
	}

	return data, refs, nil
}

// EncodeRows serializes rows of the given schema type into an array node and
// returns the sorted, distinct resource paths the rows reference.
func (s *Service) EncodeRows(schema reflect.Type, rows []Row, annotate bool) (*node.Node, []string, *diagnostic.Diagnostics) {
	diags := &diagnostic.Diagnostics{}
	seen := make(map[string]struct{})
	opts := codec.EncodeOptions{
		Annotate:    annotate,
		OnReference: func(path string) { seen[path] = struct{}{} },
	}

	arr := node.Array()
	for i, row := range rows {
		path := "[" + strconv.Itoa(i) + "]"
		if row == nil {
			diags.AddWarning(diagnostic.CodeShapeMismatch, "nil row skipped", node.TypeString(schema), path)
			continue
		}
		if rt := reflect.TypeOf(row); rt != schema {
			diags.AddError(diagnostic.CodeShapeMismatch,
				fmt.Sprintf("row %q is a %s, not a %s", row.RowKey(), node.TypeString(rt), node.TypeString(schema)),
				node.TypeString(rt), path)
			continue
		}

		n, d := s.codec.EncodeValue(reflect.ValueOf(row), schema, opts)
		diags.Merge(d)
		arr.Append(n)
	}

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	return arr, refs, diags
}

// DecodeRows builds rows of the schema type from an array node. Elements
// that cannot be decoded are dropped and reported.
func (s *Service) DecodeRows(schema reflect.Type, n *node.Node) ([]Row, *diagnostic.Diagnostics) {
	diags := &diagnostic.Diagnostics{}
	if n.IsNull() {
		return nil, diags
	}
	if n.Kind() != node.KindArray {
		diags.AddError(diagnostic.CodeShapeMismatch, "entries are a "+n.Kind().String()+", not an array", node.TypeString(schema), KeyStructEntries)
		return nil, diags
	}

	rows := make([]Row, 0, n.Len())
	for _, item := range n.Items() {
		v, d := s.codec.Deserialize(item, schema)
		diags.Merge(d)
		if !v.IsValid() {
			continue
		}
		if row, ok := v.Interface().(Row); ok && row != nil {
			rows = append(rows, row)
		}
	}

	return rows, diags
}

// Decode parses a resource file. Entries are decoded only when the schema
// type resolves; otherwise the table is returned with an error wrapping
// ErrSchemaNotFound or ErrNotRow.
func (s *Service) Decode(data []byte) (*Table, *diagnostic.Diagnostics, error) {
	diags := &diagnostic.Diagnostics{}

	root, err := node.Parse(data)
	if err != nil {
		return nil, diags, err
	}
	if root.Kind() != node.KindObject {
		return nil, diags, fmt.Errorf("%w: document is a %s", ErrFormat, root.Kind())
	}

	t := &Table{}

	if n, ok := root.Get(KeyStructType); ok && !n.IsNull() {
		if n.Kind() != node.KindString {
			return nil, diags, fmt.Errorf("%w: %s is a %s", ErrFormat, KeyStructType, n.Kind())
		}
		t.SchemaType = n.StringValue()
	}
	if n, ok := root.Get(KeyEntryCounter); ok {
		if c, ok := n.Int64(); ok && c > 0 {
			t.EntryCounter = int(c)
		}
	}
	if n, ok := root.Get(KeyVersion); ok {
		if v, ok := n.Int64(); ok {
			t.Version = int(v)
		}
	}
	if t.Version > CurrentVersion {
		diags.AddWarning(diagnostic.CodeShapeMismatch,
			fmt.Sprintf("file version %d is newer than %d", t.Version, CurrentVersion), t.SchemaType, KeyVersion)
	}
	if n, ok := root.Get(KeyReferences); ok {
		for _, ref := range n.Items() {
			if ref.Kind() == node.KindString {
				t.References = append(t.References, ref.StringValue())
			}
		}
	}

	entries, hasEntries := root.Get(KeyStructEntries)

	if t.SchemaType == "" {
		if hasEntries && entries.Len() > 0 {
			diags.AddWarning(diagnostic.CodeSchemaMissing, "entries without a schema type are ignored", "", KeyStructEntries)
		}
		return t, diags, nil
	}

	schema, d, err := s.resolve(t.SchemaType)
	diags.Merge(d)
	if err != nil {
		return t, diags, err
	}
	t.schema = schema

	if hasEntries {
		rows, d := s.DecodeRows(schema, entries)
		diags.Merge(d)
		t.Entries = rows
	}
	t.raiseCounter()

	return t, diags, nil
}

// raiseCounter keeps the entry counter from regenerating a key held by t.
func (t *Table) raiseCounter() {
	t.EntryCounter = max(t.EntryCounter, counterFloor(t.Keys()))
}

// counterFloor returns the smallest counter that cannot regenerate any of keys.
func counterFloor(keys []string) int {
	floor := 0
	for _, key := range keys {
		digits, ok := strings.CutPrefix(key, KeyStem)
		if !ok || digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n >= floor {
			floor = n + 1
		}
	}

	return floor
}
