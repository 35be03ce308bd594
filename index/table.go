package index

import (
	"fmt"
	"sort"

	"github.com/statebase/statebase/db"
	"github.com/statebase/statebase/internal/format"
	"github.com/statebase/statebase/segment/alloc"
)

// Persisted table image layout (little-endian):
//
//	0x00: entry count (uint32)
//	0x04: next ID (uint64)
//	0x0C: revision (int64)
//	0x14: entries: [id uint64][value length uint32][value bytes]...
const tableImageHeader = 4 + 8 + 8

// Table is an ordered collection of T keyed by uint64 IDs with an undo
// stack. IDs are assigned monotonically starting at 1; 0 is never used.
//
// Not safe for concurrent use; the host serializes access, as it does for
// the database as a whole.
type Table[T any] struct {
	name  string
	codec Codec[T]

	values   map[uint64]T
	nextID   uint64
	revision int64
	stack    []*frame[T]

	arena    *alloc.Arena
	writable bool
}

// NewTable creates an unbound table. name keys both the registry entry and
// the persisted image inside the segment.
func NewTable[T any](name string, codec Codec[T]) *Table[T] {
	return &Table[T]{
		name:   name,
		codec:  codec,
		values: make(map[uint64]T),
		nextID: 1,
	}
}

// Name returns the stable type identifier.
func (t *Table[T]) Name() string { return t.name }

// Len returns the number of values currently in the table.
func (t *Table[T]) Len() int { return len(t.values) }

// Revision returns the revision of the most recent undo frame, or the base
// revision when no frames exist.
func (t *Table[T]) Revision() int64 { return t.revision }

// SetRevision moves the base revision. Only legal while no undo frames
// exist.
func (t *Table[T]) SetRevision(revision int64) error {
	if len(t.stack) > 0 {
		return ErrRevision
	}
	t.revision = revision
	return nil
}

// Insert adds v under a fresh ID and returns it.
func (t *Table[T]) Insert(v T) uint64 {
	id := t.nextID
	t.nextID++
	t.values[id] = v
	if f := t.head(); f != nil {
		f.newIDs[id] = struct{}{}
	}
	return id
}

// Modify replaces the value under id.
func (t *Table[T]) Modify(id uint64, v T) error {
	old, ok := t.values[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if f := t.head(); f != nil {
		if _, created := f.newIDs[id]; !created {
			if _, seen := f.oldValues[id]; !seen {
				f.oldValues[id] = old
			}
		}
	}
	t.values[id] = v
	return nil
}

// Remove deletes the value under id.
func (t *Table[T]) Remove(id uint64) error {
	old, ok := t.values[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if f := t.head(); f != nil {
		if _, created := f.newIDs[id]; created {
			delete(f.newIDs, id)
		} else if pre, seen := f.oldValues[id]; seen {
			f.removed[id] = pre
			delete(f.oldValues, id)
		} else {
			f.removed[id] = old
		}
	}
	delete(t.values, id)
	return nil
}

// Find returns the value under id.
func (t *Table[T]) Find(id uint64) (T, bool) {
	v, ok := t.values[id]
	return v, ok
}

// Each visits every value in ascending ID order until fn returns false.
func (t *Table[T]) Each(fn func(id uint64, v T) bool) {
	ids := make([]uint64, 0, len(t.values))
	for id := range t.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if !fn(id, t.values[id]) {
			return
		}
	}
}

// IDs returns every ID in ascending order.
func (t *Table[T]) IDs() []uint64 {
	ids := make([]uint64, 0, len(t.values))
	for id := range t.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Bind attaches the table to the segment and replays the persisted image if
// one exists. On writable databases an absent image is constructed empty so
// the name is claimed immediately; read-only binds never mutate the
// segment.
func (t *Table[T]) Bind(arena *alloc.Arena, writable bool) error {
	if t.arena != nil {
		return fmt.Errorf("%w: %q", ErrExists, t.name)
	}
	t.arena = arena
	t.writable = writable

	off, n, ok := arena.Find(t.name)
	if ok {
		b, err := arena.Bytes(off, n)
		if err != nil {
			return err
		}
		return t.load(b)
	}
	if writable {
		return t.Store()
	}
	return nil
}

// Store serializes current state into the segment under the table's name.
// No-op on read-only binds.
func (t *Table[T]) Store() error {
	if t.arena == nil || !t.writable {
		return nil
	}
	buf := make([]byte, tableImageHeader, tableImageHeader+16*len(t.values))
	format.PutU32(buf, 0, uint32(len(t.values)))
	format.PutU64(buf, 4, t.nextID)
	format.PutI64(buf, 12, t.revision)

	var err error
	for _, id := range t.IDs() {
		buf = format.AppendU64(buf, id)
		lenAt := len(buf)
		buf = format.AppendU32(buf, 0)
		buf, err = t.codec.Append(buf, t.values[id])
		if err != nil {
			return fmt.Errorf("index: encode %q id %d: %w", t.name, id, err)
		}
		format.PutU32(buf, lenAt, uint32(len(buf)-lenAt-4))
	}

	off, err := t.arena.Reallocate(t.name, len(buf))
	if err != nil {
		return fmt.Errorf("index: persist %q: %w", t.name, err)
	}
	dst, err := t.arena.Bytes(off, len(buf))
	if err != nil {
		return err
	}
	copy(dst, buf)
	return nil
}

// load replays a persisted image into an empty table.
func (t *Table[T]) load(b []byte) error {
	if len(b) < tableImageHeader {
		return fmt.Errorf("%w: %q image of %d bytes", ErrCorrupt, t.name, len(b))
	}
	count := int(format.ReadU32(b, 0))
	t.nextID = format.ReadU64(b, 4)
	t.revision = format.ReadI64(b, 12)

	off := tableImageHeader
	for i := 0; i < count; i++ {
		if off+12 > len(b) {
			return fmt.Errorf("%w: %q truncated at entry %d", ErrCorrupt, t.name, i)
		}
		id := format.ReadU64(b, off)
		n := int(format.ReadU32(b, off+8))
		off += 12
		if off+n > len(b) {
			return fmt.Errorf("%w: %q entry %d overruns image", ErrCorrupt, t.name, i)
		}
		v, err := t.codec.Decode(b[off : off+n])
		if err != nil {
			return fmt.Errorf("index: decode %q id %d: %w", t.name, id, err)
		}
		t.values[id] = v
		off += n
	}
	return nil
}

var _ db.Index = (*Table[int])(nil)
