//go:build statebaselockcheck

package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Require-locking assertions: each index access must happen inside a
// declared read or write scope. The database takes no locks of its own;
// these assertions only verify that the caller's serialization discipline
// covers every access.

type lockState struct {
	enabled    bool
	readDepth  int
	writeDepth int
}

// SetRequireLocking toggles enforcement. Off by default, so instrumented
// builds behave like plain ones until the host opts in.
func (d *DB) SetRequireLocking(enabled bool) {
	d.locks.enabled = enabled
}

// WithReadLock declares that fn runs under the host's read lock.
func (d *DB) WithReadLock(fn func() error) error {
	d.locks.readDepth++
	defer func() { d.locks.readDepth-- }()
	return fn()
}

// WithWriteLock declares that fn runs under the host's write lock.
func (d *DB) WithWriteLock(fn func() error) error {
	d.locks.writeDepth++
	defer func() { d.locks.writeDepth-- }()
	return fn()
}

func (d *DB) mustReadLock(method, name string) {
	if !d.locks.enabled || d.locks.readDepth > 0 || d.locks.writeDepth > 0 {
		return
	}
	msg := fmt.Sprintf("db.%s require_read_lock failed on %q", method, name)
	logrus.Error(msg)
	panic(fmt.Errorf("%w: %s", ErrLockDiscipline, msg))
}

func (d *DB) mustWriteLock(method, name string) {
	if !d.locks.enabled || d.locks.writeDepth > 0 {
		return
	}
	msg := fmt.Sprintf("db.%s require_write_lock failed on %q", method, name)
	logrus.Error(msg)
	panic(fmt.Errorf("%w: %s", ErrLockDiscipline, msg))
}
