package db

import "errors"

var (
	// ErrEnvironmentMismatch indicates the image was produced under a
	// different toolchain, build flavor, platform, or arena format version.
	ErrEnvironmentMismatch = errors.New("db: database created by a different compiler, build, or operating system")

	// ErrNotRegistered indicates a lookup of an index that was never
	// registered on this database.
	ErrNotRegistered = errors.New("db: index not registered")

	// ErrReadOnly indicates a mutating operation on a read-only database.
	ErrReadOnly = errors.New("db: database is read-only")

	// ErrClosed indicates use of a database after Close.
	ErrClosed = errors.New("db: database closed")

	// ErrLockDiscipline indicates an index access outside a declared lock
	// scope while require-locking assertions are enabled.
	ErrLockDiscipline = errors.New("db: access without required lock")
)
