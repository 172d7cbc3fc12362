package table

import (
	"reflect"

	"datatables/identity"
)

// CurrentVersion is the file format version written by Save.
const CurrentVersion = 1

// Table is a loaded resource.
type Table struct {
	// Path is the store path the table was loaded from.
	Path string
	// SchemaType is the registered name of the row type.
	SchemaType string
	Entries    []Row
	// EntryCounter seeds generated keys. It never decreases.
	EntryCounter int
	// References lists the resources the rows point to, as of the last save.
	References []string
	Version    int

	schema reflect.Type
	ids    *identity.Table[Row]
}

// Schema returns the resolved row type.
func (t *Table) Schema() reflect.Type {
	return t.schema
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Entries)
}

// Index returns the position of the row with key, or -1.
func (t *Table) Index(key string) int {
	for i, row := range t.Entries {
		if keyOf(row) == key {
			return i
		}
	}

	return -1
}

// Get returns the row with key.
func (t *Table) Get(key string) (Row, bool) {
	if i := t.Index(key); i >= 0 {
		return t.Entries[i], true
	}

	return nil, false
}

// Keys returns the row keys in table order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Entries))
	for i, row := range t.Entries {
		keys[i] = keyOf(row)
	}

	return keys
}

func (t *Table) taken() map[string]struct{} {
	taken := make(map[string]struct{}, len(t.Entries))
	for _, row := range t.Entries {
		taken[keyOf(row)] = struct{}{}
	}

	return taken
}

// Get returns the row with key as a T.
func Get[T Row](t *Table, key string) (T, bool) {
	var zero T

	row, ok := t.Get(key)
	if !ok {
		return zero, false
	}

	out, ok := row.(T)

	return out, ok
}
