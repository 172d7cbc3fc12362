package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datatables/history"
	"datatables/node"
	"datatables/reconcile"
	"datatables/table"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotEditable is returned by Open when the table's schema fails validation.
	ErrNotEditable = errors.New("table is not editable")
	// ErrSchemaMismatch is returned when pasted rows belong to another schema type.
	ErrSchemaMismatch = errors.New("rows belong to another schema type")
)

// ViewState is the part of the window state recorded with each undo step.
type ViewState struct {
	Selected     []string `json:"selected,omitempty"`
	Focused      string   `json:"focused,omitempty"`
	EntryCounter int      `json:"entryCounter"`
}

type config struct {
	logger       *zap.Logger
	journal      *history.Journal
	idleDelay    time.Duration
	minIdleTicks int
	now          func() time.Time
}

// Option configures a Session.
type Option func(*config)

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJournal persists the undo history across sessions.
func WithJournal(j *history.Journal) Option {
	return func(c *config) { c.journal = j }
}

// WithDebounce sets how long edits must settle before they become an undo step.
func WithDebounce(idleDelay time.Duration, minIdleTicks int) Option {
	return func(c *config) {
		if idleDelay > 0 {
			c.idleDelay = idleDelay
		}
		if minIdleTicks > 0 {
			c.minIdleTicks = minIdleTicks
		}
	}
}

// WithClock replaces time.Now for structural operations.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// Session edits one table.
type Session struct {
	id     string
	svc    *table.Service
	live   *table.Table
	work   *table.Table
	cfg    config
	logger *zap.Logger

	stack    *history.Stack[ViewState]
	detector *history.Detector

	selected []string
	focused  string

	// baseView is the view recorded with the detector's baseline.
	baseView ViewState
	// saved is the snapshot of the working copy as it is on disk.
	saved string
}

// Open loads the table at path and starts editing a copy of it.
func Open(ctx context.Context, svc *table.Service, path string, opts ...Option) (*Session, error) {
	cfg := config{
		logger:       zap.NewNop(),
		idleDelay:    history.DefaultIdleDelay,
		minIdleTicks: history.DefaultMinIdleTicks,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	live, err := svc.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	if diags := svc.Validate(live.SchemaType); !diags.IsValid() {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotEditable, live.Path, diags.Error())
	}

	work, err := svc.NewTable(live.SchemaType)
	if err != nil {
		return nil, err
	}
	work.Path = live.Path

	id := uuid.NewString()
	logger := cfg.logger.With(zap.String("session", id), zap.String("path", live.Path))

	s := &Session{
		id:       id,
		svc:      svc,
		live:     live,
		work:     work,
		cfg:      cfg,
		logger:   logger,
		stack:    history.NewStack[ViewState](history.WithLogger(logger)),
		detector: history.NewDetector(cfg.idleDelay, cfg.minIdleTicks),
	}

	s.rebase()

	if cfg.journal != nil {
		if err := s.restoreJournal(ctx); err != nil {
			logger.Warn("ignoring journaled history", zap.Error(err))
		}
	}

	logger.Info("editing table", zap.String("schema", live.SchemaType), zap.Int("rows", live.Len()))

	return s, nil
}

// rebase copies the live rows into the working copy and makes it the clean state.
func (s *Session) rebase() {
	rows := make([]table.Row, len(s.live.Entries))
	for i, row := range s.live.Entries {
		rows[i] = reconcile.Clone(s.svc.Reconciler(), row)
	}

	s.svc.Reconcile(s.work, rows)
	s.work.EntryCounter = max(s.work.EntryCounter, s.live.EntryCounter)
	s.selected = s.existing(s.selected)
	if s.work.Index(s.focused) < 0 {
		s.focused = ""
	}

	s.saved = s.snapshot()
	s.commitBaseline(s.saved)
}

func (s *Session) restoreJournal(ctx context.Context) error {
	entries, level, err := s.cfg.journal.Load(ctx, s.work.Path)
	if err != nil || len(entries) == 0 {
		return err
	}

	ops, err := history.Ops[ViewState](entries)
	if err != nil {
		return err
	}

	level = min(max(level, 0), len(ops))
	at := ops[0].Before
	if level > 0 {
		at = ops[level-1].After
	}

	if at != s.saved {
		s.logger.Info("journaled history does not match the file, starting fresh")
		return s.cfg.journal.Discard(ctx, s.work.Path)
	}

	s.stack.Replace(ops, level)
	s.logger.Debug("restored history", zap.Int("ops", len(ops)), zap.Int("level", level))

	return nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Table returns the loaded table the session saves into.
func (s *Session) Table() *table.Table { return s.live }

// Rows returns the working copy. The GUI edits these rows in place.
func (s *Session) Rows() []table.Row { return s.work.Entries }

// Row returns the working row with key.
func (s *Session) Row(key string) (table.Row, bool) { return s.work.Get(key) }

// Select replaces the selection. Unknown keys are ignored.
func (s *Session) Select(keys ...string) {
	s.selected = s.existing(keys)
}

// Focus sets the row shown in the detail panel.
func (s *Session) Focus(key string) error {
	if key != "" && s.work.Index(key) < 0 {
		return fmt.Errorf("%w: %q", table.ErrRowNotFound, key)
	}
	s.focused = key

	return nil
}

// View returns the current view state.
func (s *Session) View() ViewState {
	return ViewState{
		Selected:     append([]string(nil), s.selected...),
		Focused:      s.focused,
		EntryCounter: s.work.EntryCounter,
	}
}

func (s *Session) existing(keys []string) []string {
	var out []string
	for _, key := range keys {
		if s.work.Index(key) >= 0 {
			out = append(out, key)
		}
	}

	return out
}

// snapshot serializes the working rows with type tags on every object.
func (s *Session) snapshot() string {
	n, _, _ := s.svc.EncodeRows(s.work.Schema(), s.work.Entries, true)

	data, err := node.Marshal(n, "")
	if err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))
		return ""
	}

	return string(data)
}

func (s *Session) commitBaseline(snapshot string) {
	s.detector.Reset(snapshot, s.cfg.now())
	s.baseView = s.View()
}

// Dirty reports whether the working copy differs from the file.
func (s *Session) Dirty() bool {
	return s.snapshot() != s.saved
}

// Save writes the working copy to the table's file and refreshes the loaded
// table from it.
func (s *Session) Save(ctx context.Context) error {
	s.flush()

	if err := s.svc.Save(ctx, s.work, s.live.Path); err != nil {
		return err
	}

	if _, err := s.svc.Fix(ctx, s.live); err != nil {
		return err
	}

	s.saved = s.snapshot()
	s.logger.Info("saved table", zap.Int("rows", s.work.Len()))

	return s.persistHistory(ctx)
}

// HandleDiskChange refreshes the loaded table after its file changed. A
// clean working copy follows the file; a dirty one is kept and the change
// is reported as not applied.
func (s *Session) HandleDiskChange(ctx context.Context) (bool, error) {
	if _, err := s.svc.Fix(ctx, s.live); err != nil {
		return false, err
	}

	if s.Dirty() {
		s.logger.Warn("file changed while the table has unsaved edits, keeping the edits")
		return false, nil
	}

	s.rebase()

	return true, nil
}

// Close flushes pending edits and persists the history.
func (s *Session) Close(ctx context.Context) error {
	s.flush()

	return s.persistHistory(ctx)
}

func (s *Session) persistHistory(ctx context.Context) error {
	if s.cfg.journal == nil {
		return nil
	}

	entries, err := history.Entries(s.stack.Ops())
	if err != nil {
		return err
	}

	return s.cfg.journal.Save(ctx, s.work.Path, entries, s.stack.Level())
}
