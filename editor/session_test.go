package editor_test

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"datatables/editor"
	"datatables/history"
	"datatables/registry"
	"datatables/storage"
	"datatables/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type Simple struct {
	table.RowBase
	Integer int
}

type Other struct {
	table.RowBase
	Text string
}

type Broken struct {
	table.RowBase
	Done chan struct{}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	svc   *table.Service
	store *storage.Memory
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	reg.Register(&Simple{}, &Other{}, &Broken{})

	store := storage.NewMemory()

	return &fixture{
		svc:   table.NewService(reg, store),
		store: store,
		clock: &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func name[T any]() string {
	return registry.New().NameOf(reflect.TypeFor[T]())
}

func (f *fixture) write(t *testing.T, path string, rows ...string) {
	t.Helper()
	body := fmt.Sprintf(`{"StructType": %q, "StructEntries": [%s]}`, name[*Simple](), strings.Join(rows, ","))
	require.NoError(t, f.store.Write(context.Background(), path, []byte(body)))
}

func (f *fixture) open(t *testing.T, path string, opts ...editor.Option) *editor.Session {
	t.Helper()
	opts = append([]editor.Option{editor.WithClock(f.clock.Now), editor.WithLogger(zap.NewNop())}, opts...)
	s, err := editor.Open(context.Background(), f.svc, path, opts...)
	require.NoError(t, err)

	return s
}

// settle ticks until the detector records the pending edit.
func (f *fixture) settle(s *editor.Session) bool {
	for i := 0; i < 20; i++ {
		f.clock.now = f.clock.now.Add(100 * time.Millisecond)
		if s.Tick(history.Input{}) {
			return true
		}
	}

	return false
}

func row(t *testing.T, s *editor.Session, key string) *Simple {
	t.Helper()
	r, ok := s.Row(key)
	require.True(t, ok, "row %s", key)

	return r.(*Simple)
}

func keys(s *editor.Session) []string {
	var out []string
	for _, r := range s.Rows() {
		out = append(out, r.RowKey())
	}

	return out
}

func TestSession_Scenario(t *testing.T) {
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"K1","Integer":1}`, `{"Key":"K2","Integer":2}`)
	s := f.open(t, "simple.dt")

	added, err := s.AddRow()
	require.NoError(t, err)
	assert.Equal(t, "NewEntry_0", added.RowKey())
	assert.Equal(t, 0, added.(*Simple).Integer)
	assert.Equal(t, 1, s.View().EntryCounter)

	k1 := row(t, s, "K1")
	k1.Integer = 5
	assert.False(t, s.Tick(history.Input{}))
	require.True(t, f.settle(s))
	assert.Equal(t, []string{"Add Row NewEntry_0", "Modify K1"}, s.History())
	assert.Equal(t, "Undo Modify K1", s.UndoLabel())

	require.True(t, s.Undo())
	assert.Same(t, k1, row(t, s, "K1"))
	assert.Equal(t, 1, k1.Integer)

	require.True(t, s.Redo())
	assert.Same(t, k1, row(t, s, "K1"))
	assert.Equal(t, 5, k1.Integer)

	require.NoError(t, s.RemoveRows("K2"))
	assert.Equal(t, []string{"K1", "NewEntry_0"}, keys(s))
	assert.Equal(t, "Remove Row K2", s.History()[2])
	assert.True(t, s.Dirty())
}

func TestSession_UndoRedoSymmetry(t *testing.T) {
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"A","Integer":0}`, `{"Key":"B","Integer":0}`)
	s := f.open(t, "simple.dt")

	a, b := row(t, s, "A"), row(t, s, "B")
	for i := 1; i <= 3; i++ {
		a.Integer = i
		b.Integer = -i
		require.True(t, f.settle(s))
	}
	assert.Equal(t, []string{"Modify 2 Rows", "Modify 2 Rows", "Modify 2 Rows"}, s.History())

	for i := 0; i < 3; i++ {
		require.True(t, s.Undo())
	}
	assert.False(t, s.Undo())
	assert.Equal(t, 0, a.Integer)
	assert.Equal(t, 0, b.Integer)
	assert.False(t, s.Dirty())

	require.True(t, s.Redo())
	assert.Equal(t, 1, a.Integer)

	a.Integer = 42
	require.True(t, f.settle(s))
	assert.Equal(t, []string{"Modify 2 Rows", "Modify A"}, s.History())
	assert.Equal(t, "", s.RedoLabel())
	assert.False(t, s.Redo())

	require.True(t, s.GotoHistory(0))
	assert.Equal(t, 0, a.Integer)
	require.True(t, s.GotoHistory(2))
	assert.Equal(t, 42, a.Integer)
	assert.Equal(t, -1, b.Integer)
	assert.False(t, s.GotoHistory(2))
}

func TestSession_UnrecordedEditIsFlushedBeforeUndo(t *testing.T) {
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"A","Integer":1}`)
	s := f.open(t, "simple.dt")

	row(t, s, "A").Integer = 2
	require.True(t, s.Undo())
	assert.Equal(t, 1, row(t, s, "A").Integer)
	assert.Equal(t, []string{"Modify A"}, s.History())
	assert.Equal(t, 0, s.Level())
}

func TestSession_StructuralOps(t *testing.T) {
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"K1","Integer":1}`, `{"Key":"K2","Integer":2}`, `{"Key":"K3","Integer":3}`)
	s := f.open(t, "simple.dt")

	dup, err := s.DuplicateRow("K1")
	require.NoError(t, err)
	assert.Equal(t, "NewEntry_0", dup.RowKey())
	assert.Equal(t, []string{"K1", "NewEntry_0", "K2", "K3"}, keys(s))
	assert.Equal(t, "NewEntry_0", s.View().Focused)

	require.NoError(t, s.RemoveRows("K2", "K3", "K2"))
	assert.Equal(t, []string{"K1", "NewEntry_0"}, keys(s))

	data, err := s.CopyRows("K1")
	require.NoError(t, err)
	require.NoError(t, s.Focus("K1"))
	pasted, err := s.PasteRows(data)
	require.NoError(t, err)
	require.Len(t, pasted, 1)
	assert.Equal(t, "NewEntry_1", pasted[0].RowKey())
	assert.Equal(t, 1, pasted[0].(*Simple).Integer)
	assert.Equal(t, []string{"K1", "NewEntry_1", "NewEntry_0"}, keys(s))
	assert.Equal(t, []string{"NewEntry_1"}, s.View().Selected)

	assert.Equal(t, []string{"Duplicate Row K1", "Remove 2 Rows", "Paste Row NewEntry_1"}, s.History())

	for i := 0; i < 3; i++ {
		require.True(t, s.Undo())
	}
	assert.Equal(t, []string{"K1", "K2", "K3"}, keys(s))
	assert.Equal(t, 2, s.View().EntryCounter)

	added, err := s.AddRow()
	require.NoError(t, err)
	assert.Equal(t, "NewEntry_2", added.RowKey())
	assert.Equal(t, []string{"Add Row NewEntry_2"}, s.History())

	assert.ErrorIs(t, s.RemoveRows("nope"), table.ErrRowNotFound)
	_, err = s.DuplicateRow("nope")
	assert.ErrorIs(t, err, table.ErrRowNotFound)
	assert.ErrorIs(t, s.Focus("nope"), table.ErrRowNotFound)
	assert.Len(t, s.History(), 1)

	other := fmt.Sprintf(`{"StructType": %q, "StructEntries": [{"Key": "x"}]}`, name[*Other]())
	_, err = s.PasteRows([]byte(other))
	assert.ErrorIs(t, err, editor.ErrSchemaMismatch)
}

func TestSession_PastedKeysAreNeverRegenerated(t *testing.T) {
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"K1","Integer":1}`)
	s := f.open(t, "simple.dt")

	clip := fmt.Sprintf(`{"StructType": %q, "StructEntries": [{"Key": "NewEntry_3", "Integer": 7}]}`, name[*Simple]())
	pasted, err := s.PasteRows([]byte(clip))
	require.NoError(t, err)
	require.Len(t, pasted, 1)
	assert.Equal(t, "NewEntry_3", pasted[0].RowKey())
	assert.Equal(t, 4, s.View().EntryCounter)

	require.NoError(t, s.RemoveRows("NewEntry_3"))

	var added []string
	for i := 0; i < 5; i++ {
		row, err := s.AddRow()
		require.NoError(t, err)
		added = append(added, row.RowKey())
	}
	assert.NotContains(t, added, "NewEntry_3")
	assert.Equal(t, "NewEntry_4", added[0])

	for s.Undo() {
	}
	assert.Equal(t, []string{"K1"}, keys(s))

	row, err := s.AddRow()
	require.NoError(t, err)
	assert.Equal(t, "NewEntry_9", row.RowKey())
}

func TestSession_SaveAndDiskChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"K1","Integer":1}`)
	s := f.open(t, "simple.dt")

	liveK1, ok := table.Get[*Simple](s.Table(), "K1")
	require.True(t, ok)
	workK1 := row(t, s, "K1")
	assert.NotSame(t, liveK1, workK1)
	assert.False(t, s.Dirty())

	workK1.Integer = 7
	assert.True(t, s.Dirty())
	require.NoError(t, s.Save(ctx))
	assert.False(t, s.Dirty())
	assert.Equal(t, []string{"Modify K1"}, s.History())
	assert.Equal(t, 7, liveK1.Integer)

	data, err := f.store.Read(ctx, "simple.dt")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Integer": 7`)

	f.write(t, "simple.dt", `{"Key":"K1","Integer":8}`)
	applied, err := s.HandleDiskChange(ctx)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Same(t, workK1, row(t, s, "K1"))
	assert.Equal(t, 8, workK1.Integer)
	assert.Equal(t, 8, liveK1.Integer)

	workK1.Integer = 9
	f.write(t, "simple.dt", `{"Key":"K1","Integer":10}`)
	applied, err = s.HandleDiskChange(ctx)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 9, workK1.Integer)
	assert.Equal(t, 10, liveK1.Integer)
}

func TestSession_Journal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "simple.dt", `{"Key":"K1","Integer":1}`, `{"Key":"K2","Integer":2}`)

	journal, err := history.OpenJournal(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	s := f.open(t, "simple.dt", editor.WithJournal(journal))
	_, err = s.AddRow()
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.Close(ctx))

	f.svc.Unload("simple.dt")
	s = f.open(t, "simple.dt", editor.WithJournal(journal))
	assert.Equal(t, []string{"Add Row NewEntry_0"}, s.History())
	assert.Equal(t, 1, s.Level())

	require.True(t, s.Undo())
	assert.Equal(t, []string{"K1", "K2"}, keys(s))
	require.NoError(t, s.Close(ctx))

	// the file still holds NewEntry_0, which is not the journaled state
	f.svc.Unload("simple.dt")
	s = f.open(t, "simple.dt", editor.WithJournal(journal))
	assert.Empty(t, s.History())

	entries, _, err := journal.Load(ctx, "simple.dt")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_RejectsUneditableSchema(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	body := fmt.Sprintf(`{"StructType": %q}`, name[*Broken]())
	require.NoError(t, f.store.Write(ctx, "broken.dt", []byte(body)))

	_, err := editor.Open(ctx, f.svc, "broken.dt")
	assert.ErrorIs(t, err, editor.ErrNotEditable)

	_, err = editor.Open(ctx, f.svc, "missing.dt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
