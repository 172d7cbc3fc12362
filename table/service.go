package table

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"datatables/codec"
	"datatables/identity"
	"datatables/internal/diagnostic"
	"datatables/node"
	"datatables/reconcile"
	"datatables/registry"
	"datatables/storage"
	"datatables/utils"

	"go.uber.org/zap"
)

var (
	// ErrRowNotFound is returned when no row has the requested key.
	ErrRowNotFound = errors.New("row not found")
	// ErrSchemaNotFound is returned when a schema type name is not registered.
	ErrSchemaNotFound = errors.New("schema type not found")
	// ErrNotRow is returned when a schema type does not implement Row.
	ErrNotRow = errors.New("schema type is not a row")
)

var rowType = reflect.TypeFor[Row]()

// Service loads, reconciles and saves tables kept in a store.
type Service struct {
	reg     *registry.Registry
	codec   *codec.Codec
	rec     *reconcile.Reconciler
	store   storage.Store
	logger  *zap.Logger
	metrics *Metrics

	tables map[string]*Table
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger of the service and the codec and reconciler it builds.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a service resolving schema types through reg.
func NewService(reg *registry.Registry, store storage.Store, opts ...Option) *Service {
	s := &Service{
		reg:    reg,
		store:  store,
		logger: zap.NewNop(),
		tables: make(map[string]*Table),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.codec = codec.New(reg, codec.WithLogger(s.logger))
	s.rec = reconcile.New(reg, reconcile.WithLogger(s.logger))

	return s
}

func (s *Service) Registry() *registry.Registry { return s.reg }

func (s *Service) Codec() *codec.Codec { return s.codec }

func (s *Service) Reconciler() *reconcile.Reconciler { return s.rec }

func (s *Service) Store() storage.Store { return s.store }

func (s *Service) newIdentities() *identity.Table[Row] {
	return identity.New(keyOf, s.rec, identity.WithLogger(s.logger))
}

func (s *Service) resolve(name string) (reflect.Type, *diagnostic.Diagnostics, error) {
	diags := &diagnostic.Diagnostics{}

	t, ok := s.reg.Resolve(name)
	if !ok {
		diags.AddError(diagnostic.CodeSchemaMissing, "schema type "+name+" is not registered", name, "")
		diags.AddSuggestions(diagnostic.DiagnosticError, s.reg.Suggest(name)...)

		return nil, diags, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}

	if !t.Implements(rowType) {
		diags.AddError(diagnostic.CodeSchemaNotRow, node.TypeString(t)+" does not embed table.RowBase", name, "")
		return nil, diags, fmt.Errorf("%w: %q", ErrNotRow, name)
	}

	return t, diags, nil
}

// SchemaTypes returns the names of registered row types, sorted.
func (s *Service) SchemaTypes() []string {
	var names []string
	for _, t := range s.reg.Implementations(rowType) {
		if t.Kind() == reflect.Ptr {
			names = append(names, s.reg.NameOf(t))
		}
	}

	return names
}

// NewTable returns an empty, unsaved table of the schema type.
func (s *Service) NewTable(schema string) (*Table, error) {
	t, _, err := s.resolve(schema)
	if err != nil {
		return nil, err
	}

	return &Table{
		SchemaType: schema,
		Version:    CurrentVersion,
		schema:     t,
		ids:        s.newIdentities(),
	}, nil
}

// Create writes a new empty table file holding only its schema type.
func (s *Service) Create(ctx context.Context, schema, path string) (*Table, error) {
	t, err := s.NewTable(schema)
	if err != nil {
		return nil, err
	}

	clean, err := storage.Clean(path)
	if err != nil {
		return nil, err
	}

	data, err := node.Marshal(node.Object().Set(KeyStructType, node.String(schema)), "  ")
	if err != nil {
		return nil, err
	}

	if err := s.store.Write(ctx, clean, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", clean, err)
	}

	t.Path = clean
	s.tables[clean] = t

	return t, nil
}

// Load returns the table stored at path. A table already loaded is returned
// as is; call Fix to refresh it.
func (s *Service) Load(ctx context.Context, path string) (_ *Table, err error) {
	defer func(start time.Time) { s.metrics.observe("load", start, err) }(time.Now())

	clean, err := storage.Clean(path)
	if err != nil {
		return nil, err
	}

	if t, ok := s.tables[clean]; ok {
		return t, nil
	}

	data, err := s.store.Read(ctx, clean)
	if err != nil {
		return nil, err
	}

	t, _, err := s.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", clean, err)
	}

	t.Path = clean
	t.ids = s.newIdentities()
	t.Entries, _ = t.ids.Reconcile(t.Entries)
	s.tables[clean] = t

	s.logger.Debug("loaded table",
		zap.String("path", clean),
		zap.String("schema", t.SchemaType),
		zap.Int("rows", len(t.Entries)),
	)

	return t, nil
}

// Check decodes the file at path and validates its schema type without
// loading it.
func (s *Service) Check(ctx context.Context, path string) (*Table, *diagnostic.Diagnostics, error) {
	clean, err := storage.Clean(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.store.Read(ctx, clean)
	if err != nil {
		return nil, nil, err
	}

	t, diags, err := s.Decode(data)
	if err != nil {
		return t, diags, err
	}

	t.Path = clean
	if t.SchemaType != "" {
		diags.Merge(s.Validate(t.SchemaType))
	}

	return t, diags, nil
}

// Fix reconciles t in place with the file at t.Path. Rows whose key is still
// live keep their instance and absorb the file's values; other rows are
// adopted from the file and rows missing from it are dropped. The entry
// counter never decreases.
func (s *Service) Fix(ctx context.Context, t *Table) (_ identity.Stats, err error) {
	defer func(start time.Time) { s.metrics.observe("fix", start, err) }(time.Now())

	data, err := s.store.Read(ctx, t.Path)
	if err != nil {
		return identity.Stats{}, err
	}

	fresh, _, err := s.Decode(data)
	if err != nil {
		return identity.Stats{}, fmt.Errorf("fix %s: %w", t.Path, err)
	}

	if t.ids == nil || fresh.schema != t.schema {
		t.ids = s.newIdentities()
	}

	var stats identity.Stats
	t.Entries, stats = t.ids.Reconcile(fresh.Entries)
	t.SchemaType = fresh.SchemaType
	t.schema = fresh.schema
	t.EntryCounter = max(t.EntryCounter, fresh.EntryCounter)
	t.References = fresh.References
	t.Version = fresh.Version
	s.metrics.fixed(stats)

	s.logger.Info("fixed table",
		zap.String("path", t.Path),
		zap.Int("merged", stats.Merged),
		zap.Int("adopted", stats.Adopted),
		zap.Int("dropped", stats.Dropped),
	)

	return stats, nil
}

// Save writes the whole table to path, or to t.Path when path is empty.
func (s *Service) Save(ctx context.Context, t *Table, path string) (err error) {
	defer func(start time.Time) { s.metrics.observe("save", start, err) }(time.Now())

	if path == "" {
		path = t.Path
	}

	clean, err := storage.Clean(path)
	if err != nil {
		return err
	}

	data, refs, err := s.encode(t)
	if err != nil {
		return fmt.Errorf("save %s: %w", clean, err)
	}

	if err := s.store.Write(ctx, clean, data); err != nil {
		return fmt.Errorf("save %s: %w", clean, err)
	}

	t.References = refs
	t.Version = CurrentVersion
	if t.Path == "" {
		t.Path = clean
		s.tables[clean] = t
	}
	if t.ids == nil {
		t.ids = s.newIdentities()
		t.Entries, _ = t.ids.Reconcile(t.Entries)
	}

	s.logger.Debug("saved table", zap.String("path", clean), zap.Int("rows", len(t.Entries)))

	return nil
}

// Unload forgets the table loaded from path.
func (s *Service) Unload(path string) {
	if clean, err := storage.Clean(path); err == nil {
		delete(s.tables, clean)
	}
}

// NewRow builds a blank row of the table's schema type with no key.
func (s *Service) NewRow(t *Table) (Row, error) {
	if t.schema == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, t.SchemaType)
	}

	row, ok := s.reg.New(t.schema).Interface().(Row)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRow, t.SchemaType)
	}

	return row, nil
}

// NextKey consumes and returns the next generated key not used by t.
func (s *Service) NextKey(t *Table) string {
	stem := node.NewStem(KeyStem, t.EntryCounter, t.taken())
	key := stem.Next()
	t.EntryCounter = stem.Counter()

	return key
}

func (s *Service) bind(t *Table, row Row) {
	if t.ids == nil {
		t.ids = s.newIdentities()
	}
	t.ids.Bind(row.RowKey(), row)
}

// AddRow appends a blank row with a generated key.
func (s *Service) AddRow(t *Table) (Row, error) {
	row, err := s.NewRow(t)
	if err != nil {
		return nil, err
	}

	row.SetRowKey(s.NextKey(t))
	t.Entries = append(t.Entries, row)
	s.bind(t, row)

	return row, nil
}

// RemoveRow removes the row with key. Its identity entry goes stale, so a
// later Fix adopts a fresh instance if the file still holds the key.
func (s *Service) RemoveRow(t *Table, key string) error {
	i := t.Index(key)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrRowNotFound, key)
	}

	t.Entries = slices.Delete(t.Entries, i, i+1)
	if t.ids != nil {
		t.ids.Release(key)
	}

	return nil
}

// DuplicateRow inserts a deep copy of the row with key right after it,
// under a generated key.
func (s *Service) DuplicateRow(t *Table, key string) (Row, error) {
	i := t.Index(key)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrRowNotFound, key)
	}

	dup := reconcile.Clone(s.rec, t.Entries[i])
	if dup == nil {
		return nil, fmt.Errorf("duplicate %q: clone failed", key)
	}

	dup.SetRowKey(s.NextKey(t))
	t.Entries = slices.Insert(t.Entries, i+1, dup)
	s.bind(t, dup)

	return dup, nil
}

// Lookup returns the live instance bound to key in t's identity table.
func (s *Service) Lookup(t *Table, key string) (Row, bool) {
	if t.ids == nil {
		return nil, false
	}

	return t.ids.Lookup(key)
}

// Reconcile replaces t's rows with rows, keeping the live instance of every
// key still bound in t's identity table.
func (s *Service) Reconcile(t *Table, rows []Row) identity.Stats {
	if t.ids == nil {
		t.ids = s.newIdentities()
	}

	var stats identity.Stats
	t.Entries, stats = t.ids.Reconcile(rows)
	t.raiseCounter()

	return stats
}

// Insert places rows at position i, clamped to the table, and binds them.
// Keys are used as given; the entry counter moves past any generated key
// among them.
func (s *Service) Insert(t *Table, i int, rows ...Row) {
	i = utils.Clamp(0, i, len(t.Entries))
	t.Entries = slices.Insert(t.Entries, i, rows...)

	for _, row := range rows {
		s.bind(t, row)
	}
	t.raiseCounter()
}
