package index

import "github.com/statebase/statebase/db"

// frame captures everything needed to revert the table to its state at
// session start: pre-images of modified values, removed values, the IDs
// created inside the frame, and the next-ID watermark.
type frame[T any] struct {
	oldValues map[uint64]T
	removed   map[uint64]T
	newIDs    map[uint64]struct{}
	oldNextID uint64
	revision  int64
}

func (t *Table[T]) head() *frame[T] {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// StartUndoSession pushes a new undo frame and returns its scoped handle.
// With enabled false the handle is inert and every operation on it is
// discarded.
func (t *Table[T]) StartUndoSession(enabled bool) (db.IndexSession, error) {
	if !enabled {
		return &Session[T]{applied: true}, nil
	}
	t.revision++
	t.stack = append(t.stack, &frame[T]{
		oldValues: make(map[uint64]T),
		removed:   make(map[uint64]T),
		newIDs:    make(map[uint64]struct{}),
		oldNextID: t.nextID,
		revision:  t.revision,
	})
	return &Session[T]{t: t}, nil
}

// Undo discards the top undo frame, reverting the table to the snapshot it
// captured. No-op when no frames exist.
func (t *Table[T]) Undo() {
	f := t.head()
	if f == nil {
		return
	}
	for id := range f.newIDs {
		delete(t.values, id)
	}
	for id, v := range f.oldValues {
		t.values[id] = v
	}
	for id, v := range f.removed {
		t.values[id] = v
	}
	t.nextID = f.oldNextID
	t.stack = t.stack[:len(t.stack)-1]
	t.revision--
}

// Squash merges the top two undo frames into one, so a later Undo reverts
// both at once. With a single frame it behaves like Undo's bookkeeping by
// folding into nothing below: the frame simply absorbs into the base state.
func (t *Table[T]) Squash() {
	if len(t.stack) == 0 {
		return
	}
	if len(t.stack) == 1 {
		t.stack = t.stack[:0]
		t.revision--
		return
	}
	top := t.stack[len(t.stack)-1]
	prev := t.stack[len(t.stack)-2]

	for id, v := range top.oldValues {
		if _, created := prev.newIDs[id]; created {
			continue
		}
		if _, seen := prev.oldValues[id]; seen {
			continue
		}
		if _, gone := prev.removed[id]; gone {
			continue
		}
		prev.oldValues[id] = v
	}
	for id := range top.newIDs {
		prev.newIDs[id] = struct{}{}
	}
	for id, v := range top.removed {
		if _, created := prev.newIDs[id]; created {
			// Created and removed within the merged frame: net nothing.
			delete(prev.newIDs, id)
			continue
		}
		if pre, seen := prev.oldValues[id]; seen {
			prev.removed[id] = pre
			delete(prev.oldValues, id)
			continue
		}
		prev.removed[id] = v
	}
	t.stack = t.stack[:len(t.stack)-1]
	t.revision--
}

// Commit makes every frame with revision at most revision permanent by
// dropping it from the bottom of the stack. The revision number is
// caller-supplied and not validated for monotonicity.
func (t *Table[T]) Commit(revision int64) {
	drop := 0
	for drop < len(t.stack) && t.stack[drop].revision <= revision {
		drop++
	}
	if drop > 0 {
		t.stack = append(t.stack[:0], t.stack[drop:]...)
	}
}

// UndoAll discards every undo frame, newest first.
func (t *Table[T]) UndoAll() {
	for len(t.stack) > 0 {
		t.Undo()
	}
}

// Session is the scoped handle for one undo frame of one table.
type Session[T any] struct {
	t       *Table[T]
	applied bool
}

// Push keeps the frame.
func (s *Session[T]) Push() {
	s.applied = true
}

// Squash merges the frame into the one below it.
func (s *Session[T]) Squash() {
	if s.applied {
		return
	}
	s.t.Squash()
	s.applied = true
}

// Undo rolls the frame back. Safe to call from a defer after Push or
// Squash; it only acts on a still-active handle.
func (s *Session[T]) Undo() {
	if s.applied {
		return
	}
	s.t.Undo()
	s.applied = true
}

var _ db.IndexSession = (*Session[int])(nil)
