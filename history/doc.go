// Package history records editing history as whole-table snapshots.
//
// A Stack holds a linear list of operations with a cursor, the number of
// applied operations. Every operation stores the serialized table before and
// after the edit plus an opaque view state for each side. Pushing a new
// operation after undoing discards the undone branch.
//
// A Detector decides when polled changes become an operation: only once the
// snapshot has been quiet for IdleDelay and the mouse button has not changed
// for MinIdleTicks ticks, so a burst of keystrokes or a drag is one step.
//
// A Journal keeps the history of each resource in SQLite between sessions.
package history
