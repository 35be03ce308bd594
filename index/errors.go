package index

import "errors"

var (
	// ErrNotFound indicates an ID with no value in the table.
	ErrNotFound = errors.New("index: object not found")

	// ErrExists indicates an attempt to bind a table that is already bound.
	ErrExists = errors.New("index: table already bound")

	// ErrCorrupt indicates a persisted table image that fails to parse.
	ErrCorrupt = errors.New("index: corrupt table image")

	// ErrRevision indicates a revision change while undo frames exist.
	ErrRevision = errors.New("index: cannot set revision with pending undo frames")
)
