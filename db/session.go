package db

import "fmt"

type sessionState int

const (
	sessionActive sessionState = iota
	sessionPushed
	sessionCanceled
	sessionInert
)

// Session is a composite undo session bundling one sub-session per
// registered index. It exclusively owns its sub-sessions: the whole bundle
// is pushed or rolled back as a unit.
//
// A Session must not outlive its use without a decision: callers either
// Push (keep), Squash (merge down), Undo (roll back), or defer Close, which
// rolls back unless the session was pushed.
type Session struct {
	subs  []IndexSession
	state sessionState
}

// StartUndoSession opens one sub-session per registered index, in
// registration order, and bundles them. When enabled is false an inert
// composite is returned that discards all operations.
//
// If opening a sub-session fails mid-way, the already-opened sub-sessions
// are rolled back in reverse order before the failure propagates.
func (d *DB) StartUndoSession(enabled bool) (*Session, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if !enabled {
		return &Session{state: sessionInert}, nil
	}
	d.mustWriteLock("StartUndoSession", "")

	subs := make([]IndexSession, 0, len(d.list))
	for _, idx := range d.list {
		sub, err := idx.StartUndoSession(true)
		if err != nil {
			for i := len(subs) - 1; i >= 0; i-- {
				subs[i].Undo()
			}
			return nil, fmt.Errorf("db: start undo session on %q: %w", idx.Name(), err)
		}
		subs = append(subs, sub)
	}
	return &Session{subs: subs}, nil
}

// Push keeps every sub-session, in insertion order. A session that has been
// pushed, canceled, or is inert discards the call.
func (s *Session) Push() {
	if s.state != sessionActive {
		return
	}
	for _, sub := range s.subs {
		sub.Push()
	}
	s.state = sessionPushed
}

// Squash merges every sub-session into the frame below it, in insertion
// order.
func (s *Session) Squash() {
	if s.state != sessionActive {
		return
	}
	for _, sub := range s.subs {
		sub.Squash()
	}
	s.state = sessionPushed
}

// Undo rolls every sub-session back, in insertion order.
func (s *Session) Undo() {
	if s.state != sessionActive {
		return
	}
	for _, sub := range s.subs {
		sub.Undo()
	}
	s.state = sessionCanceled
}

// Close rolls the session back unless it was pushed. Idempotent; intended
// for defer.
func (s *Session) Close() {
	s.Undo()
}
