package history_test

import (
	"testing"

	"datatables/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type view struct {
	Focused string
	Count   int
}

// edits pushes ops turning "s0" into "s1", "s1" into "s2" and so on.
func edits(t *testing.T, s *history.Stack[view], from, to int) {
	t.Helper()

	for i := from; i < to; i++ {
		before, after := state(i), state(i+1)
		require.NoError(t, s.PushUndo("Edit "+after, before, view{Count: i}))
		require.NoError(t, s.PushRedo(after, view{Count: i + 1}))
	}
}

func state(i int) string { return "s" + string(rune('0'+i)) }

func TestStack_UndoRedoSymmetry(t *testing.T) {
	s := history.NewStack[view]()
	edits(t, s, 0, 3)

	assert.Equal(t, 3, s.Level())
	assert.Equal(t, "Undo Edit s3", s.UndoLabel())
	assert.Empty(t, s.RedoLabel())

	var restored []string
	for s.CanUndo() {
		r, ok := s.Undo()
		require.True(t, ok)
		restored = append(restored, r.Snapshot)
	}
	assert.Equal(t, []string{"s2", "s1", "s0"}, restored)

	_, ok := s.Undo()
	assert.False(t, ok, "no-op at level 0")

	r, ok := s.Redo()
	require.True(t, ok)
	assert.Equal(t, "s1", r.Snapshot)
	assert.Equal(t, view{Count: 1}, r.View)
	assert.Equal(t, "Redo Edit s2", s.RedoLabel())
}

func TestStack_BranchTruncation(t *testing.T) {
	s := history.NewStack[view]()
	edits(t, s, 0, 3)

	s.Undo()
	s.Undo()
	require.Equal(t, 1, s.Level())
	require.True(t, s.CanRedo())

	require.NoError(t, s.Push("Branch", "s1", view{}, "b2", view{}))

	assert.Equal(t, 2, s.Len())
	assert.False(t, s.CanRedo(), "fresh edit drops the undone branch")
	assert.Equal(t, []string{"Edit s1", "Branch"}, s.Labels())

	_, ok := s.Redo()
	assert.False(t, ok)
}

func TestStack_SetLevel(t *testing.T) {
	s := history.NewStack[view]()
	edits(t, s, 0, 3)

	_, ok := s.SetLevel(3)
	assert.False(t, ok, "already there")

	r, ok := s.SetLevel(1)
	require.True(t, ok)
	assert.Equal(t, "s1", r.Snapshot)
	assert.Equal(t, 1, s.Level())

	r, ok = s.SetLevel(0)
	require.True(t, ok)
	assert.Equal(t, "s0", r.Snapshot)

	_, ok = s.SetLevel(4)
	assert.False(t, ok)

	r, ok = s.SetLevel(3)
	require.True(t, ok)
	assert.Equal(t, "s3", r.Snapshot)
}

func TestStack_PendingContract(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := history.NewStack[view](history.WithLogger(zap.New(core)))

	require.ErrorIs(t, s.PushRedo("x", view{}), history.ErrNoPendingOp)

	require.NoError(t, s.PushUndo("Edit", "s0", view{}))
	assert.True(t, s.Pending())
	assert.False(t, s.CanUndo())
	assert.Empty(t, s.Ops(), "pending ops are not complete")

	require.ErrorIs(t, s.PushUndo("Again", "s0", view{}), history.ErrPendingOp)

	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)
	_, ok = s.SetLevel(0)
	assert.False(t, ok)

	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.DPanicLevel).Len())
	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	require.NoError(t, s.PushRedo("s1", view{}))
	assert.Len(t, s.Ops(), 1)
	assert.NotEmpty(t, s.Ops()[0].ID)

	dev := history.NewStack[view](history.WithLogger(zap.Must(zap.NewDevelopment())))
	assert.Panics(t, func() { _ = dev.PushRedo("x", view{}) })
}

func TestStack_ReplaceAndClear(t *testing.T) {
	s := history.NewStack[view]()
	edits(t, s, 0, 2)

	other := history.NewStack[view]()
	other.Replace(s.Ops(), 7)
	assert.Equal(t, 2, other.Level())
	assert.Equal(t, s.Labels(), other.Labels())

	other.Clear()
	assert.Zero(t, other.Len())
	assert.False(t, other.CanUndo())
}
