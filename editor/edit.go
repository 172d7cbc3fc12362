package editor

import (
	"fmt"
	"strconv"

	"datatables/history"
	"datatables/node"
	"datatables/table"

	"go.uber.org/zap"
)

// Tick polls the working copy for direct edits. It returns true when the
// edits since the last step were recorded as a new undo step.
func (s *Session) Tick(in history.Input) bool {
	c := s.detector.Tick(s.cfg.now(), s.snapshot(), in)
	if !c.Ready {
		return false
	}

	return s.record(modifyLabel(c.Before, c.After), c.Before, c.After)
}

// flush records edits the detector has not committed yet.
func (s *Session) flush() {
	before, after := s.detector.Baseline(), s.snapshot()
	if before == after {
		return
	}

	s.record(modifyLabel(before, after), before, after)
}

func (s *Session) record(label, before, after string) bool {
	view := s.View()
	if err := s.stack.Push(label, before, s.baseView, after, view); err != nil {
		return false
	}

	s.commitBaseline(after)
	s.logger.Debug("recorded edit", zap.String("label", label), zap.Int("level", s.stack.Level()))

	return true
}

// structural applies fn and records it as one undo step labelled by fn's result.
func (s *Session) structural(fn func() (string, error)) error {
	s.flush()

	before := s.detector.Baseline()

	label, err := fn()
	if err != nil {
		return err
	}

	if !s.record(label, before, s.snapshot()) {
		return history.ErrPendingOp
	}

	return nil
}

// AddRow appends a blank row and focuses it.
func (s *Session) AddRow() (table.Row, error) {
	var row table.Row

	err := s.structural(func() (string, error) {
		var err error
		if row, err = s.svc.AddRow(s.work); err != nil {
			return "", err
		}
		s.focused = row.RowKey()
		s.selected = []string{row.RowKey()}

		return "Add Row " + row.RowKey(), nil
	})

	return row, err
}

// RemoveRows removes the rows with keys. Unknown keys are an error and
// remove nothing.
func (s *Session) RemoveRows(keys ...string) error {
	keys = distinct(keys)
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		if s.work.Index(key) < 0 {
			return fmt.Errorf("%w: %q", table.ErrRowNotFound, key)
		}
	}

	return s.structural(func() (string, error) {
		for _, key := range keys {
			if err := s.svc.RemoveRow(s.work, key); err != nil {
				return "", err
			}
		}
		s.selected = s.existing(s.selected)
		if s.work.Index(s.focused) < 0 {
			s.focused = ""
		}

		if len(keys) == 1 {
			return "Remove Row " + keys[0], nil
		}

		return "Remove " + strconv.Itoa(len(keys)) + " Rows", nil
	})
}

// DuplicateRow inserts a copy of the row with key after it and focuses the copy.
func (s *Session) DuplicateRow(key string) (table.Row, error) {
	if s.work.Index(key) < 0 {
		return nil, fmt.Errorf("%w: %q", table.ErrRowNotFound, key)
	}

	var dup table.Row

	err := s.structural(func() (string, error) {
		var err error
		if dup, err = s.svc.DuplicateRow(s.work, key); err != nil {
			return "", err
		}
		s.focused = dup.RowKey()
		s.selected = []string{dup.RowKey()}

		return "Duplicate Row " + key, nil
	})

	return dup, err
}

// CopyRows renders the rows with keys as a clipboard document in the table
// file format.
func (s *Session) CopyRows(keys ...string) ([]byte, error) {
	rows := make([]table.Row, 0, len(keys))
	for _, key := range keys {
		row, ok := s.work.Get(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", table.ErrRowNotFound, key)
		}
		rows = append(rows, row)
	}

	entries, _, diags := s.svc.EncodeRows(s.work.Schema(), rows, true)
	if err := diags.Error(); err != nil {
		return nil, err
	}

	doc := node.Object().
		Set(table.KeyStructType, node.String(s.work.SchemaType)).
		Set(table.KeyStructEntries, entries)

	return node.Marshal(doc, "  ")
}

// PasteRows inserts rows from a clipboard document after the focused row,
// or at the end. Pasted rows whose key is empty or taken get a generated key.
func (s *Session) PasteRows(data []byte) ([]table.Row, error) {
	doc, err := node.Parse(data)
	if err != nil {
		return nil, err
	}

	schema, _ := doc.Get(table.KeyStructType)
	if schema.StringValue() != s.work.SchemaType {
		return nil, fmt.Errorf("%w: %q", ErrSchemaMismatch, schema.StringValue())
	}

	entries, _ := doc.Get(table.KeyStructEntries)
	rows, _ := s.svc.DecodeRows(s.work.Schema(), entries)
	if len(rows) == 0 {
		return nil, nil
	}

	err = s.structural(func() (string, error) {
		taken := make(map[string]struct{}, s.work.Len()+len(rows))
		for _, key := range s.work.Keys() {
			taken[key] = struct{}{}
		}

		keys := make([]string, len(rows))
		for i, row := range rows {
			if _, dup := taken[row.RowKey()]; dup || row.RowKey() == "" {
				row.SetRowKey(s.svc.NextKey(s.work))
			}
			taken[row.RowKey()] = struct{}{}
			keys[i] = row.RowKey()
		}

		at := s.work.Len()
		if i := s.work.Index(s.focused); i >= 0 {
			at = i + 1
		}
		s.svc.Insert(s.work, at, rows...)
		s.selected = keys
		s.focused = keys[len(keys)-1]

		if len(rows) == 1 {
			return "Paste Row " + keys[0], nil
		}

		return "Paste " + strconv.Itoa(len(rows)) + " Rows", nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Undo reverts the last step. Edits not yet recorded are recorded first.
func (s *Session) Undo() bool {
	s.flush()

	r, ok := s.stack.Undo()
	if ok {
		s.restore(r)
	}

	return ok
}

// Redo reapplies the next step.
func (s *Session) Redo() bool {
	s.flush()

	r, ok := s.stack.Redo()
	if ok {
		s.restore(r)
	}

	return ok
}

// GotoHistory jumps to the state after the first n steps.
func (s *Session) GotoHistory(n int) bool {
	s.flush()

	r, ok := s.stack.SetLevel(n)
	if ok {
		s.restore(r)
	}

	return ok
}

// History returns the step labels, oldest first.
func (s *Session) History() []string { return s.stack.Labels() }

// Level is the number of applied steps.
func (s *Session) Level() int { return s.stack.Level() }

func (s *Session) UndoLabel() string { return s.stack.UndoLabel() }

func (s *Session) RedoLabel() string { return s.stack.RedoLabel() }

func (s *Session) restore(r history.Restore[ViewState]) {
	n, err := node.Parse([]byte(r.Snapshot))
	if err != nil {
		s.logger.DPanic("corrupt history snapshot", zap.String("label", r.Op.Label), zap.Error(err))
		return
	}

	rows, _ := s.svc.DecodeRows(s.work.Schema(), n)
	stats := s.svc.Reconcile(s.work, rows)

	s.work.EntryCounter = max(s.work.EntryCounter, r.View.EntryCounter)
	s.selected = s.existing(r.View.Selected)
	s.focused = r.View.Focused
	if s.work.Index(s.focused) < 0 {
		s.focused = ""
	}

	s.commitBaseline(s.snapshot())

	s.logger.Debug("restored history",
		zap.String("label", r.Op.Label),
		zap.Int("level", s.stack.Level()),
		zap.Int("merged", stats.Merged),
		zap.Int("adopted", stats.Adopted),
	)
}

// modifyLabel names the rows that differ between two snapshots.
func modifyLabel(before, after string) string {
	changed := changedKeys(before, after)

	switch len(changed) {
	case 0:
		return "Modify Rows"
	case 1:
		return "Modify " + changed[0]
	}

	return "Modify " + strconv.Itoa(len(changed)) + " Rows"
}

func changedKeys(before, after string) []string {
	old := rowsByKey(before)
	cur := rowsByKey(after)

	var changed []string
	for _, key := range cur.order {
		if prev, ok := old.rows[key]; !ok || !node.Equal(prev, cur.rows[key]) {
			changed = append(changed, key)
		}
	}
	for _, key := range old.order {
		if _, ok := cur.rows[key]; !ok {
			changed = append(changed, key)
		}
	}

	return changed
}

type keyedRows struct {
	order []string
	rows  map[string]*node.Node
}

func rowsByKey(snapshot string) keyedRows {
	out := keyedRows{rows: make(map[string]*node.Node)}

	n, err := node.Parse([]byte(snapshot))
	if err != nil {
		return out
	}

	for _, row := range n.Items() {
		k, _ := row.Get("Key")
		key := k.StringValue()
		if _, dup := out.rows[key]; !dup {
			out.order = append(out.order, key)
		}
		out.rows[key] = row
	}

	return out
}

func distinct(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}

	return out
}
