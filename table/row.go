package table

// Row is a table entry. Schema types embed RowBase to implement it.
type Row interface {
	RowKey() string
	SetRowKey(key string)
}

// RowBase carries the key every row has. It is unique within a table.
type RowBase struct {
	Key string
}

func (r *RowBase) RowKey() string { return r.Key }

func (r *RowBase) SetRowKey(key string) { r.Key = key }

func keyOf(r Row) string {
	if r == nil {
		return ""
	}

	return r.RowKey()
}
