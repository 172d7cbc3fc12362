package history

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrPendingOp is returned by PushUndo while an operation waits for its redo half.
	ErrPendingOp = errors.New("an undo operation is already pending")
	// ErrNoPendingOp is returned by PushRedo when no operation waits for its redo half.
	ErrNoPendingOp = errors.New("no pending undo operation")
)

// Op is one recorded edit.
type Op[V any] struct {
	ID         string
	Label      string
	Before     string
	After      string
	BeforeView V
	AfterView  V
}

// Restore tells the caller which snapshot and view to restore.
type Restore[V any] struct {
	Op       Op[V]
	Snapshot string
	View     V
}

type config struct {
	logger *zap.Logger
}

// Option configures a Stack or a Journal.
type Option func(*config)

// WithLogger sets the logger contract violations are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newConfig(opts []Option) config {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// Stack is a linear undo history with a cursor.
type Stack[V any] struct {
	logger  *zap.Logger
	ops     []Op[V]
	level   int
	pending bool
}

func NewStack[V any](opts ...Option) *Stack[V] {
	cfg := newConfig(opts)

	return &Stack[V]{logger: cfg.logger}
}

// PushUndo opens a new operation with its before half. Operations above the
// cursor are discarded.
func (s *Stack[V]) PushUndo(label, before string, view V) error {
	if s.pending {
		s.logger.DPanic("push undo while an operation is pending",
			zap.String("label", label), zap.String("pending", s.ops[s.level-1].Label))

		return ErrPendingOp
	}

	clear(s.ops[s.level:])
	s.ops = append(s.ops[:s.level], Op[V]{
		ID:         uuid.NewString(),
		Label:      label,
		Before:     before,
		BeforeView: view,
	})
	s.level++
	s.pending = true

	return nil
}

// PushRedo closes the pending operation with its after half.
func (s *Stack[V]) PushRedo(after string, view V) error {
	if !s.pending {
		s.logger.DPanic("push redo without a pending operation")
		return ErrNoPendingOp
	}

	op := &s.ops[s.level-1]
	op.After = after
	op.AfterView = view
	s.pending = false

	return nil
}

// Push records a complete operation.
func (s *Stack[V]) Push(label, before string, beforeView V, after string, afterView V) error {
	if err := s.PushUndo(label, before, beforeView); err != nil {
		return err
	}

	return s.PushRedo(after, afterView)
}

func (s *Stack[V]) refuse(action string) bool {
	if s.pending {
		s.logger.Warn("history navigation while an operation is pending", zap.String("action", action))
		return true
	}

	return false
}

// Undo moves the cursor back one operation; restore its before half.
func (s *Stack[V]) Undo() (Restore[V], bool) {
	if s.refuse("undo") || s.level == 0 {
		return Restore[V]{}, false
	}

	s.level--
	op := s.ops[s.level]

	return Restore[V]{Op: op, Snapshot: op.Before, View: op.BeforeView}, true
}

// Redo moves the cursor forward one operation; restore its after half.
func (s *Stack[V]) Redo() (Restore[V], bool) {
	if s.refuse("redo") || s.level == len(s.ops) {
		return Restore[V]{}, false
	}

	op := s.ops[s.level]
	s.level++

	return Restore[V]{Op: op, Snapshot: op.After, View: op.AfterView}, true
}

// SetLevel jumps to the state after the first n operations. Level 0 restores
// the before half of the first operation, any other level the after half of
// operation n-1. Returns false when already there or n is out of range.
func (s *Stack[V]) SetLevel(n int) (Restore[V], bool) {
	if s.refuse("goto") || n == s.level || n < 0 || n > len(s.ops) {
		return Restore[V]{}, false
	}

	s.level = n
	if n == 0 {
		op := s.ops[0]
		return Restore[V]{Op: op, Snapshot: op.Before, View: op.BeforeView}, true
	}

	op := s.ops[n-1]

	return Restore[V]{Op: op, Snapshot: op.After, View: op.AfterView}, true
}

func (s *Stack[V]) CanUndo() bool { return s.level != 0 && !s.pending }

func (s *Stack[V]) CanRedo() bool { return s.level != len(s.ops) && !s.pending }

// UndoLabel is "Undo <label>" of the operation Undo would revert, or empty.
func (s *Stack[V]) UndoLabel() string {
	if !s.CanUndo() {
		return ""
	}

	return "Undo " + s.ops[s.level-1].Label
}

// RedoLabel is "Redo <label>" of the operation Redo would apply, or empty.
func (s *Stack[V]) RedoLabel() string {
	if !s.CanRedo() {
		return ""
	}

	return "Redo " + s.ops[s.level].Label
}

// Level is the number of applied operations.
func (s *Stack[V]) Level() int { return s.level }

func (s *Stack[V]) Len() int { return len(s.ops) }

func (s *Stack[V]) Pending() bool { return s.pending }

func (s *Stack[V]) Labels() []string {
	labels := make([]string, len(s.ops))
	for i, op := range s.ops {
		labels[i] = op.Label
	}

	return labels
}

// Ops returns a copy of the complete operations.
func (s *Stack[V]) Ops() []Op[V] {
	n := len(s.ops)
	if s.pending {
		n--
	}

	return append([]Op[V](nil), s.ops[:n]...)
}

// Replace installs a history loaded from elsewhere. level is clamped to the
// number of operations.
func (s *Stack[V]) Replace(ops []Op[V], level int) {
	s.ops = append([]Op[V](nil), ops...)
	s.level = min(max(level, 0), len(s.ops))
	s.pending = false
}

func (s *Stack[V]) Clear() {
	s.ops = nil
	s.level = 0
	s.pending = false
}
