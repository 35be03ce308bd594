package db

import "github.com/statebase/statebase/segment/alloc"

// Index is the collaborator contract for a typed index registered on a
// database. The database requires these operations but does not define
// their implementation; package index provides the stock one.
//
// Undo-frame semantics:
//   - Undo discards the top undo frame, reverting to the snapshot it
//     captured.
//   - Squash merges the top two undo frames into one.
//   - Commit drops all undo frames with revision at most the given
//     revision.
//   - UndoAll discards every undo frame.
type Index interface {
	// Name is the stable type identifier keying the registry and the
	// index's persisted state inside the segment.
	Name() string

	Undo()
	Squash()
	Commit(revision int64)
	UndoAll()

	// StartUndoSession pushes a new undo frame (when enabled) and returns
	// a scoped handle for it. A handle abandoned without Push must be
	// rolled back by its owner via Undo.
	StartUndoSession(enabled bool) (IndexSession, error)

	// Bind attaches the index to the segment: locate persisted state and
	// load it, constructing the named object only when writable.
	Bind(arena *alloc.Arena, writable bool) error

	// Store serializes current state into the segment.
	Store() error
}

// IndexSession is a scoped per-index undo frame.
type IndexSession interface {
	// Push keeps the frame: it will be absorbed by the enclosing frame or
	// committed later.
	Push()

	// Squash merges the frame into the one below it.
	Squash()

	// Undo rolls the frame back.
	Undo()
}
