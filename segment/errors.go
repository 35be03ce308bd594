package segment

import "errors"

var (
	// ErrNotFound indicates a read-only open of a directory with no data file.
	ErrNotFound = errors.New("segment: database file not found")

	// ErrSizeInvalid indicates a requested size that is not a positive
	// multiple of Quantum.
	ErrSizeInvalid = errors.New("segment: invalid size")

	// ErrUnsupportedPlatform indicates locked mode or hugepage backing was
	// requested on a platform that cannot provide it.
	ErrUnsupportedPlatform = errors.New("segment: unsupported on this platform")

	// ErrHugepageMount indicates a supplied hugepage path is not a hugetlbfs
	// mount.
	ErrHugepageMount = errors.New("segment: not a hugetlbfs mount")

	// ErrFileIO indicates a failure creating, growing, mapping, or syncing
	// the data file.
	ErrFileIO = errors.New("segment: file I/O failure")

	// ErrLockBusy indicates another writer holds the advisory file lock.
	ErrLockBusy = errors.New("segment: locked by another writer")

	// ErrDirty indicates the dirty flag is set and the open did not allow it.
	ErrDirty = errors.New("segment: database dirty flag set")

	// ErrMissingSentinel indicates the dirty flag object is absent from a
	// file that must already contain it.
	ErrMissingSentinel = errors.New("segment: dirty flag not found in shared memory")

	// ErrLoadAborted indicates a termination signal arrived while the file
	// was being preloaded into an anonymous region.
	ErrLoadAborted = errors.New("segment: database load aborted")

	// ErrPinFailed indicates mlock of the anonymous region failed.
	ErrPinFailed = errors.New("segment: failed to pin database in memory")

	// ErrClosed indicates use of a segment after Close.
	ErrClosed = errors.New("segment: closed")
)
