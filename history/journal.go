package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Entry is an operation with its view states encoded as JSON.
type Entry struct {
	ID         string
	Label      string
	Before     string
	After      string
	BeforeView json.RawMessage
	AfterView  json.RawMessage
}

// Journal persists the history of each resource in a SQLite database.
type Journal struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// OpenJournal opens or creates the journal database at path.
func OpenJournal(ctx context.Context, path string, opts ...Option) (*Journal, error) {
	cfg := newConfig(opts)

	if path == "" {
		path = "history.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS history_ops (
			resource TEXT NOT NULL,
			seq INTEGER NOT NULL,
			id TEXT NOT NULL,
			label TEXT NOT NULL,
			before_snapshot TEXT NOT NULL,
			after_snapshot TEXT NOT NULL,
			before_view BLOB,
			after_view BLOB,
			PRIMARY KEY (resource, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS history_level (
			resource TEXT PRIMARY KEY,
			level INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create history tables: %w", err)
		}
	}

	return &Journal{db: db, path: path, logger: cfg.logger}, nil
}

// Save replaces the stored history of resource.
func (j *Journal) Save(ctx context.Context, resource string, entries []Entry, level int) (retErr error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_ops WHERE resource = ?`, resource); err != nil {
		return fmt.Errorf("clear history of %s: %w", resource, err)
	}

	for seq, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history_ops(resource, seq, id, label, before_snapshot, after_snapshot, before_view, after_view)
			VALUES(?,?,?,?,?,?,?,?)`,
			resource, seq, e.ID, e.Label, e.Before, e.After, []byte(e.BeforeView), []byte(e.AfterView)); err != nil {
			return fmt.Errorf("insert op %d of %s: %w", seq, resource, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history_level(resource, level, updated_at) VALUES(?,?,?)
		ON CONFLICT(resource) DO UPDATE SET level=excluded.level, updated_at=excluded.updated_at`,
		resource, level, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert level of %s: %w", resource, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	j.logger.Debug("history saved", zap.String("resource", resource), zap.Int("ops", len(entries)), zap.Int("level", level))

	return nil
}

// Load returns the stored history of resource; an unknown resource has none.
func (j *Journal) Load(ctx context.Context, resource string) ([]Entry, int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, label, before_snapshot, after_snapshot, before_view, after_view
		FROM history_ops WHERE resource = ? ORDER BY seq`, resource)
	if err != nil {
		return nil, 0, fmt.Errorf("select history of %s: %w", resource, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			beforeView, afterView []byte
		)
		if err := rows.Scan(&e.ID, &e.Label, &e.Before, &e.After, &beforeView, &afterView); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		e.BeforeView, e.AfterView = beforeView, afterView
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history of %s: %w", resource, err)
	}

	var level int
	err = j.db.QueryRowContext(ctx, `SELECT level FROM history_level WHERE resource = ?`, resource).Scan(&level)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("select level of %s: %w", resource, err)
	}

	return entries, level, nil
}

// Discard deletes the stored history of resource.
func (j *Journal) Discard(ctx context.Context, resource string) error {
	for _, stmt := range []string{
		`DELETE FROM history_ops WHERE resource = ?`,
		`DELETE FROM history_level WHERE resource = ?`,
	} {
		if _, err := j.db.ExecContext(ctx, stmt, resource); err != nil {
			return fmt.Errorf("discard history of %s: %w", resource, err)
		}
	}

	return nil
}

// Path returns the database path.
func (j *Journal) Path() string { return j.path }

func (j *Journal) Close() error {
	return j.db.Close()
}

// Entries encodes the view states of ops.
func Entries[V any](ops []Op[V]) ([]Entry, error) {
	entries := make([]Entry, 0, len(ops))

	for _, op := range ops {
		before, err := json.Marshal(op.BeforeView)
		if err != nil {
			return nil, fmt.Errorf("encode view of %q: %w", op.Label, err)
		}

		after, err := json.Marshal(op.AfterView)
		if err != nil {
			return nil, fmt.Errorf("encode view of %q: %w", op.Label, err)
		}

		entries = append(entries, Entry{
			ID:         op.ID,
			Label:      op.Label,
			Before:     op.Before,
			After:      op.After,
			BeforeView: before,
			AfterView:  after,
		})
	}

	return entries, nil
}

// Ops decodes the view states of entries.
func Ops[V any](entries []Entry) ([]Op[V], error) {
	ops := make([]Op[V], 0, len(entries))

	for _, e := range entries {
		op := Op[V]{ID: e.ID, Label: e.Label, Before: e.Before, After: e.After}

		if len(e.BeforeView) > 0 {
			if err := json.Unmarshal(e.BeforeView, &op.BeforeView); err != nil {
				return nil, fmt.Errorf("decode view of %q: %w", e.Label, err)
			}
		}
		if len(e.AfterView) > 0 {
			if err := json.Unmarshal(e.AfterView, &op.AfterView); err != nil {
				return nil, fmt.Errorf("decode view of %q: %w", e.Label, err)
			}
		}

		ops = append(ops, op)
	}

	return ops, nil
}
