package db

import (
	"errors"
	"fmt"

	"github.com/statebase/statebase/segment"
	"github.com/statebase/statebase/segment/alloc"
)

// OpenFlags selects read-only or read-write access.
type OpenFlags int

const (
	ReadOnly OpenFlags = iota
	ReadWrite
)

type config struct {
	allowDirty    bool
	mode          segment.Mode
	hugepagePaths []string
}

// Option adjusts Open behavior.
type Option func(*config)

// AllowDirty permits opening an image whose dirty flag is set.
func AllowDirty() Option {
	return func(c *config) { c.allowDirty = true }
}

// WithMode selects the residency mode. Default is mapped.
func WithMode(m segment.Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithHugepagePaths supplies candidate hugetlbfs mounts for locked mode.
func WithHugepagePaths(paths []string) Option {
	return func(c *config) { c.hugepagePaths = paths }
}

// DB is an open database: a segment plus an insertion-ordered registry of
// typed indices and the composite session protocol over them.
type DB struct {
	seg      *segment.Segment
	writable bool

	list   []Index
	byName map[string]Index

	locks  lockState
	closed bool
}

// Open opens or creates the database under dir. size is the requested
// segment size in bytes and must be a multiple of segment.Quantum.
func Open(dir string, flags OpenFlags, size uint64, opts ...Option) (*DB, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	seg, err := segment.Open(dir, segment.Options{
		Writable:      flags == ReadWrite,
		Size:          size,
		AllowDirty:    cfg.allowDirty,
		Mode:          cfg.mode,
		HugepagePaths: cfg.hugepagePaths,
	})
	if err != nil {
		return nil, err
	}

	d := &DB{
		seg:      seg,
		writable: flags == ReadWrite,
		byName:   make(map[string]Index),
	}
	if err := d.checkEnvironment(); err != nil {
		// The segment is already open with the dirty flag published; a
		// clean Close clears it so a retry does not see a spurious dirty
		// state.
		_ = seg.Close()
		return nil, err
	}
	return d, nil
}

// checkEnvironment constructs the fingerprint on fresh images and compares
// it against the host on existing ones.
func (d *DB) checkEnvironment() error {
	arena := d.seg.Arena()
	host := CurrentEnvironment()

	if d.seg.Created() {
		off, _, err := arena.FindOrConstruct(EnvironmentName, environmentSize)
		if err != nil {
			return fmt.Errorf("construct environment record: %w", err)
		}
		b, err := arena.Bytes(off, environmentSize)
		if err != nil {
			return err
		}
		host.encode(b)
		return nil
	}

	off, n, ok := arena.Find(EnvironmentName)
	if !ok {
		reportMismatch(host, Environment{})
		return ErrEnvironmentMismatch
	}
	b, err := arena.Bytes(off, n)
	if err != nil {
		return err
	}
	stored, err := DecodeEnvironment(b)
	if err != nil {
		return err
	}
	if !host.Equal(stored) {
		reportMismatch(host, stored)
		return ErrEnvironmentMismatch
	}
	return nil
}

// Register binds idx to the segment and appends it to the registry.
// Registering a name that is already present is a silent no-op. On
// read-only databases binding only locates persisted state, never
// constructs it.
func (d *DB) Register(idx Index) error {
	if d.closed {
		return ErrClosed
	}
	d.mustWriteLock("Register", idx.Name())
	if _, ok := d.byName[idx.Name()]; ok {
		return nil
	}
	if err := idx.Bind(d.seg.Arena(), d.writable); err != nil {
		return fmt.Errorf("db: bind index %q: %w", idx.Name(), err)
	}
	d.list = append(d.list, idx)
	d.byName[idx.Name()] = idx
	return nil
}

// Get returns the registered index with the given name.
func (d *DB) Get(name string) (Index, error) {
	if d.closed {
		return nil, ErrClosed
	}
	d.mustReadLock("Get", name)
	idx, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return idx, nil
}

// Indices returns the registered indices in registration order.
func (d *DB) Indices() []Index {
	out := make([]Index, len(d.list))
	copy(out, d.list)
	return out
}

// Undo discards the top undo frame of every registered index, in
// registration order.
func (d *DB) Undo() {
	d.mustWriteLock("Undo", "")
	for _, idx := range d.list {
		idx.Undo()
	}
}

// Squash merges the top two undo frames of every registered index, in
// registration order.
func (d *DB) Squash() {
	d.mustWriteLock("Squash", "")
	for _, idx := range d.list {
		idx.Squash()
	}
}

// Commit makes all undo frames with revision at most revision permanent, in
// registration order. Revisions are caller-supplied and passed through
// unvalidated.
func (d *DB) Commit(revision int64) {
	d.mustWriteLock("Commit", "")
	for _, idx := range d.list {
		idx.Commit(revision)
	}
}

// UndoAll discards every undo frame of every registered index, in
// registration order.
func (d *DB) UndoAll() {
	d.mustWriteLock("UndoAll", "")
	for _, idx := range d.list {
		idx.UndoAll()
	}
}

// Flush serializes registered indices into the segment and forces a full
// segment sync; in heap and locked modes the sync step is a no-op and the
// image reaches the file only at Close. The dirty flag stays set. No-op on
// read-only databases.
func (d *DB) Flush() error {
	if d.closed {
		return ErrClosed
	}
	if !d.writable {
		return nil
	}
	for _, idx := range d.list {
		if err := idx.Store(); err != nil {
			return fmt.Errorf("db: store index %q: %w", idx.Name(), err)
		}
	}
	return d.seg.Flush()
}

// Writable reports whether the database was opened read-write.
func (d *DB) Writable() bool { return d.writable }

// Segment exposes the underlying mapped-file segment.
func (d *DB) Segment() *segment.Segment { return d.seg }

// Arena exposes the in-segment allocator.
func (d *DB) Arena() *alloc.Arena { return d.seg.Arena() }

// Close serializes index state (writable only), clears the registry so no
// handle outlives the mapping, and tears down the segment. Teardown always
// completes; store failures are reported in the returned error.
func (d *DB) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.writable {
		for _, idx := range d.list {
			if err := idx.Store(); err != nil {
				errs = append(errs, fmt.Errorf("store index %q: %w", idx.Name(), err))
			}
		}
	}
	d.list = nil
	d.byName = nil
	_ = d.seg.Close()
	return errors.Join(errs...)
}
