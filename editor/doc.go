// Package editor is the model behind a table editing window.
//
// A Session edits a working copy of a loaded table. Structural operations
// (add, remove, duplicate, paste) are recorded as undo steps immediately;
// direct edits to row values are picked up by polling Tick, which coalesces
// them into one step once the user pauses. Undo and redo restore snapshots
// through the working copy's identity table, so rows handed to the GUI stay
// the same instances whenever their key survives.
package editor
