//go:build !statebaselockcheck

package db

// Require-locking assertions compile away entirely without the
// statebaselockcheck build tag.

type lockState struct{}

// SetRequireLocking is a no-op without the statebaselockcheck build tag.
func (d *DB) SetRequireLocking(bool) {}

// WithReadLock runs fn. Lock tracking is compiled out.
func (d *DB) WithReadLock(fn func() error) error { return fn() }

// WithWriteLock runs fn. Lock tracking is compiled out.
func (d *DB) WithWriteLock(fn func() error) error { return fn() }

func (d *DB) mustReadLock(string, string)  {}
func (d *DB) mustWriteLock(string, string) {}
