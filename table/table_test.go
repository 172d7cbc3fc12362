package table_test

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"datatables/internal/diagnostic"
	"datatables/node"
	"datatables/registry"
	"datatables/storage"
	"datatables/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Simple struct {
	table.RowBase
	Integer int
}

type Effect interface{ Apply() string }

type Burn struct{ Damage int }

func (b *Burn) Apply() string { return fmt.Sprintf("burn %d", b.Damage) }

type Heal struct{ Amount float64 }

func (h *Heal) Apply() string { return fmt.Sprintf("heal %g", h.Amount) }

type texture struct{ path string }

func (t *texture) ResourcePath() string { return t.path }

type Item struct {
	table.RowBase
	Tags    []string
	Stats   map[string]int
	Effects []Effect
	Icon    *texture
}

type Point struct{ X, Y int }

type Broken struct {
	table.RowBase
	Updates chan int
	OnLoad  func()
	Grid    map[Point]int
}

type NotRow struct{ Name string }

var (
	simpleName = registry.New().NameOf(reflect.TypeFor[*Simple]())
	itemName   = registry.New().NameOf(reflect.TypeFor[*Item]())
)

func newService(t *testing.T) (*table.Service, *storage.Memory) {
	t.Helper()

	reg := registry.New()
	reg.Register(&Simple{}, &Item{}, &Burn{}, &Heal{}, &Broken{}, NotRow{})
	reg.RegisterOpaque(reflect.TypeFor[*texture](), registry.PathCodec(func(p string) *texture { return &texture{path: p} }))

	store := storage.NewMemory()

	return table.NewService(reg, store), store
}

func writeFile(t *testing.T, store storage.Store, path, body string) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), path, []byte(body)))
}

func simpleFile(entries ...string) string {
	return fmt.Sprintf(`{"StructType": %q, "StructEntries": [%s]}`, simpleName, strings.Join(entries, ","))
}

func integer(t *testing.T, tbl *table.Table, key string) int {
	t.Helper()
	row, ok := table.Get[*Simple](tbl, key)
	require.True(t, ok, "row %s", key)

	return row.Integer
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	disk := simpleFile(`{"Key":"K1","Integer":1}`, `{"Key":"K2","Integer":2}`)
	writeFile(t, store, "simple.dt", disk)

	tbl, err := svc.Load(ctx, "simple.dt")
	require.NoError(t, err)
	assert.Equal(t, []string{"K1", "K2"}, tbl.Keys())

	row, err := svc.AddRow(tbl)
	require.NoError(t, err)
	assert.Equal(t, "NewEntry_0", row.RowKey())
	assert.Equal(t, 0, row.(*Simple).Integer)
	assert.Equal(t, 1, tbl.EntryCounter)

	k1, _ := table.Get[*Simple](tbl, "K1")
	removed, _ := table.Get[*Simple](tbl, "K2")
	require.NoError(t, svc.RemoveRow(tbl, "K2"))

	data, err := svc.Encode(tbl)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"K2"`)
	assert.Contains(t, string(data), `"NewEntry_0"`)

	stats, err := svc.Fix(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"K1", "K2"}, tbl.Keys())
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 1, stats.Adopted)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, tbl.EntryCounter)

	again, _ := table.Get[*Simple](tbl, "K1")
	assert.Same(t, k1, again)
	restored, _ := table.Get[*Simple](tbl, "K2")
	assert.NotSame(t, removed, restored)
	assert.Equal(t, 2, restored.Integer)
}

func TestFix_MergesIntoLiveRows(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	writeFile(t, store, "simple.dt", simpleFile(`{"Key":"K1","Integer":1}`, `{"Key":"K2","Integer":2}`))

	tbl, err := svc.Load(ctx, "simple.dt")
	require.NoError(t, err)
	k1, _ := table.Get[*Simple](tbl, "K1")

	writeFile(t, store, "simple.dt", simpleFile(`{"Key":"K3","Integer":3}`, `{"Key":"K1","Integer":9}`))
	_, err = svc.Fix(ctx, tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"K3", "K1"}, tbl.Keys())
	live, ok := svc.Lookup(tbl, "K1")
	require.True(t, ok)
	assert.Same(t, k1, live)
	assert.Equal(t, 9, k1.Integer)
	_, ok = svc.Lookup(tbl, "K2")
	assert.False(t, ok)

	// Load hands out the same table until it is unloaded.
	same, err := svc.Load(ctx, "./simple.dt")
	require.NoError(t, err)
	assert.Same(t, tbl, same)
	svc.Unload("simple.dt")
	other, err := svc.Load(ctx, "simple.dt")
	require.NoError(t, err)
	assert.NotSame(t, tbl, other)
}

func TestKeyUniqueness(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	writeFile(t, store, "simple.dt", simpleFile(`{"Key":"NewEntry_3"}`, `{"Key":"NewEntry_x"}`))

	tbl, err := svc.Load(ctx, "simple.dt")
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.EntryCounter)

	row, err := svc.AddRow(tbl)
	require.NoError(t, err)
	assert.Equal(t, "NewEntry_4", row.RowKey())

	require.NoError(t, svc.RemoveRow(tbl, "NewEntry_3"))
	require.NoError(t, svc.RemoveRow(tbl, "NewEntry_4"))

	for i := 0; i < 10; i++ {
		row, err := svc.AddRow(tbl)
		require.NoError(t, err)
		assert.NotEqual(t, "NewEntry_3", row.RowKey())
		assert.NotEqual(t, "NewEntry_4", row.RowKey())
	}
	assert.Equal(t, 15, tbl.EntryCounter)

	// a saved counter survives reloads even when no generated key is left
	tbl.Entries = nil
	require.NoError(t, svc.Save(ctx, tbl, ""))
	svc.Unload("simple.dt")
	tbl, err = svc.Load(ctx, "simple.dt")
	require.NoError(t, err)
	assert.Equal(t, 15, tbl.EntryCounter)
}

func TestKeyUniqueness_InsertedAndReconciledRows(t *testing.T) {
	svc, _ := newService(t)
	tbl, err := svc.NewTable(simpleName)
	require.NoError(t, err)

	svc.Insert(tbl, 0, &Simple{RowBase: table.RowBase{Key: "NewEntry_3"}})
	assert.Equal(t, 4, tbl.EntryCounter)
	require.NoError(t, svc.RemoveRow(tbl, "NewEntry_3"))

	var keys []string
	for i := 0; i < 5; i++ {
		row, err := svc.AddRow(tbl)
		require.NoError(t, err)
		keys = append(keys, row.RowKey())
	}
	assert.Equal(t, []string{"NewEntry_4", "NewEntry_5", "NewEntry_6", "NewEntry_7", "NewEntry_8"}, keys)

	svc.Reconcile(tbl, []table.Row{&Simple{RowBase: table.RowBase{Key: "NewEntry_20"}}})
	assert.Equal(t, 21, tbl.EntryCounter)

	svc.Reconcile(tbl, nil)
	assert.Equal(t, 21, tbl.EntryCounter, "counter never decreases")
}

func TestAddRow_SkipsTakenKeys(t *testing.T) {
	svc, _ := newService(t)
	tbl, err := svc.NewTable(simpleName)
	require.NoError(t, err)
	tbl.Entries = append(tbl.Entries, &Simple{RowBase: table.RowBase{Key: "NewEntry_1"}})

	var keys []string
	for i := 0; i < 3; i++ {
		row, err := svc.AddRow(tbl)
		require.NoError(t, err)
		keys = append(keys, row.RowKey())
	}

	assert.Equal(t, []string{"NewEntry_0", "NewEntry_2", "NewEntry_3"}, keys)
	assert.Equal(t, 4, tbl.EntryCounter)
}

func TestDuplicateRow(t *testing.T) {
	svc, _ := newService(t)
	tbl, err := svc.NewTable(itemName)
	require.NoError(t, err)

	first, err := svc.AddRow(tbl)
	require.NoError(t, err)
	_, err = svc.AddRow(tbl)
	require.NoError(t, err)

	src := first.(*Item)
	src.Tags = []string{"sharp"}
	src.Effects = []Effect{&Burn{Damage: 3}}

	dup, err := svc.DuplicateRow(tbl, "NewEntry_0")
	require.NoError(t, err)
	assert.Equal(t, []string{"NewEntry_0", "NewEntry_2", "NewEntry_1"}, tbl.Keys())

	copied := dup.(*Item)
	assert.Equal(t, src.Tags, copied.Tags)
	assert.NotSame(t, src.Effects[0], copied.Effects[0])
	copied.Tags[0] = "blunt"
	assert.Equal(t, "sharp", src.Tags[0])

	live, ok := svc.Lookup(tbl, "NewEntry_2")
	require.True(t, ok)
	assert.Same(t, dup, live)

	_, err = svc.DuplicateRow(tbl, "missing")
	assert.ErrorIs(t, err, table.ErrRowNotFound)
	assert.ErrorIs(t, svc.RemoveRow(tbl, "missing"), table.ErrRowNotFound)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	tbl, err := svc.NewTable(itemName)
	require.NoError(t, err)

	row, err := svc.AddRow(tbl)
	require.NoError(t, err)
	item := row.(*Item)
	item.Tags = []string{"a", "b"}
	item.Stats = map[string]int{"str": 4}
	item.Effects = []Effect{&Burn{Damage: 2}, nil, &Heal{Amount: 1.5}}
	item.Icon = &texture{path: "textures/sword.png"}

	require.NoError(t, svc.Save(ctx, tbl, "items.dt"))
	assert.Equal(t, "items.dt", tbl.Path)
	assert.Equal(t, []string{"textures/sword.png"}, tbl.References)

	data, err := store.Read(ctx, "items.dt")
	require.NoError(t, err)
	root, err := node.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		table.KeyStructType, table.KeyStructEntries, table.KeyEntryCounter, table.KeyReferences, table.KeyVersion,
	}, root.Keys())
	assert.Contains(t, string(data), `"__type": "`+registry.New().NameOf(reflect.TypeFor[*Burn]())+`"`)

	svc.Unload("items.dt")
	loaded, err := svc.Load(ctx, "items.dt")
	require.NoError(t, err)
	require.NotSame(t, tbl, loaded)

	got, ok := table.Get[*Item](loaded, "NewEntry_0")
	require.True(t, ok)
	assert.Equal(t, item.Tags, got.Tags)
	assert.Equal(t, item.Stats, got.Stats)
	require.Len(t, got.Effects, 3)
	assert.Equal(t, &Burn{Damage: 2}, got.Effects[0])
	assert.Nil(t, got.Effects[1])
	assert.Equal(t, &Heal{Amount: 1.5}, got.Effects[2])
	assert.Equal(t, "textures/sword.png", got.Icon.ResourcePath())

	again, err := svc.Encode(loaded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	_, err := svc.Create(ctx, simpleName, "new.dt")
	require.NoError(t, err)

	data, err := store.Read(ctx, "new.dt")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"StructType\": \""+simpleName+"\"\n}\n", string(data))

	svc.Unload("new.dt")
	tbl, err := svc.Load(ctx, "new.dt")
	require.NoError(t, err)
	assert.Equal(t, simpleName, tbl.SchemaType)
	assert.Empty(t, tbl.Entries)
	assert.Equal(t, 0, tbl.Version)
}

func TestDecode_Errors(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Decode([]byte(`{`))
	assert.ErrorIs(t, err, node.ErrSyntax)

	_, _, err = svc.Decode([]byte(`[]`))
	assert.ErrorIs(t, err, table.ErrFormat)

	_, _, err = svc.Decode([]byte(`{"StructType": 5}`))
	assert.ErrorIs(t, err, table.ErrFormat)

	misspelled := strings.TrimSuffix(simpleName, "Simple") + "Simpel"
	tbl, diags, err := svc.Decode([]byte(fmt.Sprintf(`{"StructType": %q}`, misspelled)))
	require.ErrorIs(t, err, table.ErrSchemaNotFound)
	assert.Equal(t, misspelled, tbl.SchemaType)
	require.Len(t, diags.Errors, 1)
	assert.Equal(t, diagnostic.CodeSchemaMissing, diags.Errors[0].Code)
	assert.Contains(t, diags.Errors[0].Suggestions, simpleName)

	notRow := registry.New().NameOf(reflect.TypeFor[NotRow]())
	_, _, err = svc.Decode([]byte(fmt.Sprintf(`{"StructType": %q}`, notRow)))
	assert.ErrorIs(t, err, table.ErrNotRow)

	tbl, diags, err = svc.Decode([]byte(`{"StructEntries": [{"Key": "a"}]}`))
	require.NoError(t, err)
	assert.Empty(t, tbl.Entries)
	assert.Equal(t, []string{diagnostic.CodeSchemaMissing}, diags.Codes())
}

func TestDecode_DropsBadEntries(t *testing.T) {
	svc, _ := newService(t)

	tbl, diags, err := svc.Decode([]byte(simpleFile(`{"Key":"a","Integer":1}`, `"oops"`, `{"Key":"b","Integer":"x","Extra":1}`)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Keys())
	assert.True(t, diags.HasErrors())
	assert.Equal(t, 0, integer(t, tbl, "b"))
}

func TestValidate(t *testing.T) {
	svc, _ := newService(t)

	assert.True(t, svc.Validate(simpleName).IsValid())
	assert.True(t, svc.Validate(itemName).IsValid())

	broken := svc.Validate(registry.New().NameOf(reflect.TypeFor[*Broken]()))
	assert.Equal(t, []string{
		diagnostic.CodeUnsupportedShape, diagnostic.CodeUnsupportedShape, diagnostic.CodeUnsupportedKey,
	}, broken.Codes())

	assert.Equal(t, []string{diagnostic.CodeSchemaNotRow},
		svc.Validate(registry.New().NameOf(reflect.TypeFor[NotRow]())).Codes())
	assert.Equal(t, []string{diagnostic.CodeSchemaMissing}, svc.Validate("nope.Nothing").Codes())
}

func TestSchemaTypes(t *testing.T) {
	svc, _ := newService(t)

	assert.Equal(t, []string{
		registry.New().NameOf(reflect.TypeFor[*Broken]()),
		itemName,
		simpleName,
	}, svc.SchemaTypes())
}
