package alloc

import "errors"

var (
	// ErrNoSpace indicates the segment has no room left for an allocation.
	ErrNoSpace = errors.New("alloc: segment exhausted")

	// ErrBadHeader indicates the arena header failed validation (magic,
	// version, or recorded size does not match the attached image).
	ErrBadHeader = errors.New("alloc: bad arena header")

	// ErrBadRef indicates an offset/length pair outside the segment bounds.
	ErrBadRef = errors.New("alloc: reference out of segment bounds")

	// ErrTooSmall indicates a named object exists but is smaller than the
	// requested size.
	ErrTooSmall = errors.New("alloc: named object smaller than requested")

	// ErrNameLength indicates an object name longer than 65535 bytes.
	ErrNameLength = errors.New("alloc: object name too long")
)
