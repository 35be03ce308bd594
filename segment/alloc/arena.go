package alloc

import (
	"fmt"
	"math"

	"github.com/statebase/statebase/internal/format"
)

// FormatVersion is the on-disk arena format version. It doubles as the
// auxiliary-library version recorded in the environment fingerprint.
const FormatVersion uint32 = 1

// Arena header layout (all integers little-endian):
//
//	0x00: magic "SBSEG\x01\x00\x00" (8 bytes)
//	0x08: format version (uint32)
//	0x0C: reserved (uint32)
//	0x10: logical segment size (uint64)
//	0x18: bump pointer - offset of next free byte (uint64)
//	0x20: offset of first name record (uint64, 0 = empty table)
//	0x28: reserved (24 bytes)
const (
	HeaderSize = 64

	magicOffset   = 0x00
	versionOffset = 0x08
	sizeOffset    = 0x10
	bumpOffset    = 0x18
	firstOffset   = 0x20
)

var magic = [8]byte{'S', 'B', 'S', 'E', 'G', 0x01, 0, 0}

// Name record layout, allocated inline in the segment:
//
//	0x00: offset of next record (uint64, 0 = end of list)
//	0x08: payload offset (uint64)
//	0x10: payload length (uint32)
//	0x14: name length (uint16)
//	0x16: name bytes
const (
	recNextOffset    = 0x00
	recPayloadOffset = 0x08
	recLengthOffset  = 0x10
	recNameLenOffset = 0x14
	recHeaderSize    = 0x16
)

// Arena is a view over a segment image. It does not own the backing slice;
// the mapped-file manager swaps the slice out when the segment is relocated
// into an anonymous region.
type Arena struct {
	data []byte
}

// Format initializes a fresh arena header over data and returns the arena.
// The entire slice becomes the segment; everything past the header is free.
func Format(data []byte) (*Arena, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: segment of %d bytes cannot hold %d byte header", ErrNoSpace, len(data), HeaderSize)
	}
	copy(data[magicOffset:], magic[:])
	format.PutU32(data, versionOffset, FormatVersion)
	format.PutU64(data, sizeOffset, uint64(len(data)))
	format.PutU64(data, bumpOffset, HeaderSize)
	format.PutU64(data, firstOffset, 0)
	return &Arena{data: data}, nil
}

// Attach validates the arena header in data and returns a view over it.
func Attach(data []byte) (*Arena, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: image too small (%d bytes)", ErrBadHeader, len(data))
	}
	for i, b := range magic {
		if data[magicOffset+i] != b {
			return nil, fmt.Errorf("%w: bad magic", ErrBadHeader)
		}
	}
	if v := format.ReadU32(data, versionOffset); v != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrBadHeader, v, FormatVersion)
	}
	recorded := format.ReadU64(data, sizeOffset)
	if recorded > uint64(len(data)) {
		return nil, fmt.Errorf("%w: recorded size %d exceeds image size %d", ErrBadHeader, recorded, len(data))
	}
	bump := format.ReadU64(data, bumpOffset)
	if bump < HeaderSize || bump > recorded {
		return nil, fmt.Errorf("%w: bump pointer %d outside [%d, %d]", ErrBadHeader, bump, HeaderSize, recorded)
	}
	return &Arena{data: data}, nil
}

// Rebase swaps the backing slice after the image has been copied elsewhere,
// e.g. into an anonymous region for heap or locked residency. The new slice
// must hold the same image.
func (a *Arena) Rebase(data []byte) error {
	fresh, err := Attach(data)
	if err != nil {
		return err
	}
	a.data = fresh.data
	return nil
}

// Size returns the logical segment size recorded in the header.
func (a *Arena) Size() uint64 {
	return format.ReadU64(a.data, sizeOffset)
}

// Grow records a larger logical size after the backing file was grown in
// place. Shrinking is refused.
func (a *Arena) Grow(n uint64) error {
	if n < a.Size() {
		return fmt.Errorf("%w: cannot shrink segment from %d to %d", ErrBadRef, a.Size(), n)
	}
	if n > uint64(len(a.data)) {
		return fmt.Errorf("%w: size %d exceeds image of %d bytes", ErrBadRef, n, len(a.data))
	}
	format.PutU64(a.data, sizeOffset, n)
	return nil
}

// Used returns the bump pointer: the offset of the next free byte.
func (a *Arena) Used() uint64 {
	return format.ReadU64(a.data, bumpOffset)
}

// Allocate reserves n bytes in the segment and returns their offset.
// Allocations are 8-byte aligned and zeroed (fresh segment space is zero;
// the arena never reuses space).
func (a *Arena) Allocate(n int) (uint64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative size %d", ErrBadRef, n)
	}
	bump := align8(a.Used())
	end := bump + uint64(n)
	if end < bump || end > a.Size() {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, segment size %d", ErrNoSpace, n, bump, a.Size())
	}
	format.PutU64(a.data, bumpOffset, end)
	return bump, nil
}

// Find locates a named object without mutating the image. It returns the
// payload offset and length. Read-only openers rely on Find never writing.
func (a *Arena) Find(name string) (off uint64, size int, ok bool) {
	rec := format.ReadU64(a.data, firstOffset)
	for rec != 0 {
		nameLen := int(format.ReadU16(a.data, int(rec)+recNameLenOffset))
		got := a.data[int(rec)+recHeaderSize : int(rec)+recHeaderSize+nameLen]
		if string(got) == name {
			return format.ReadU64(a.data, int(rec)+recPayloadOffset),
				int(format.ReadU32(a.data, int(rec)+recLengthOffset)),
				true
		}
		rec = format.ReadU64(a.data, int(rec)+recNextOffset)
	}
	return 0, 0, false
}

// FindOrConstruct locates the named object, constructing it with a zeroed
// payload of size bytes if absent. created reports whether construction
// happened. An existing object smaller than size is an error.
func (a *Arena) FindOrConstruct(name string, size int) (off uint64, created bool, err error) {
	if existing, existingSize, ok := a.Find(name); ok {
		if existingSize < size {
			return 0, false, fmt.Errorf("%w: %q is %d bytes, need %d", ErrTooSmall, name, existingSize, size)
		}
		return existing, false, nil
	}
	off, err = a.construct(name, size)
	if err != nil {
		return 0, false, err
	}
	return off, true, nil
}

// Reallocate points the named object at a payload of at least size bytes,
// constructing the object if absent. If the current payload is large enough
// it is reused; otherwise a new payload is allocated and the record is
// repointed, abandoning the old payload.
func (a *Arena) Reallocate(name string, size int) (uint64, error) {
	rec := a.findRecord(name)
	if rec == 0 {
		return a.construct(name, size)
	}
	if int(format.ReadU32(a.data, int(rec)+recLengthOffset)) >= size {
		return format.ReadU64(a.data, int(rec)+recPayloadOffset), nil
	}
	payload, err := a.Allocate(size)
	if err != nil {
		return 0, err
	}
	format.PutU64(a.data, int(rec)+recPayloadOffset, payload)
	format.PutU32(a.data, int(rec)+recLengthOffset, uint32(size))
	return payload, nil
}

// Bytes returns a bounds-checked window over the segment image.
func (a *Arena) Bytes(off uint64, n int) ([]byte, error) {
	if n < 0 || off > uint64(len(a.data)) || off+uint64(n) > uint64(len(a.data)) {
		return nil, fmt.Errorf("%w: [%d, %d+%d)", ErrBadRef, off, off, n)
	}
	return a.data[off : off+uint64(n)], nil
}

// Names returns every registered object name in table order.
func (a *Arena) Names() []string {
	var names []string
	rec := format.ReadU64(a.data, firstOffset)
	for rec != 0 {
		nameLen := int(format.ReadU16(a.data, int(rec)+recNameLenOffset))
		names = append(names, string(a.data[int(rec)+recHeaderSize:int(rec)+recHeaderSize+nameLen]))
		rec = format.ReadU64(a.data, int(rec)+recNextOffset)
	}
	return names
}

func (a *Arena) findRecord(name string) uint64 {
	rec := format.ReadU64(a.data, firstOffset)
	for rec != 0 {
		nameLen := int(format.ReadU16(a.data, int(rec)+recNameLenOffset))
		got := a.data[int(rec)+recHeaderSize : int(rec)+recHeaderSize+nameLen]
		if string(got) == name {
			return rec
		}
		rec = format.ReadU64(a.data, int(rec)+recNextOffset)
	}
	return 0
}

// construct appends a name record and a zeroed payload, linking the record
// at the head of the table.
func (a *Arena) construct(name string, size int) (uint64, error) {
	if len(name) > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d bytes", ErrNameLength, len(name))
	}
	rec, err := a.Allocate(recHeaderSize + len(name))
	if err != nil {
		return 0, err
	}
	payload, err := a.Allocate(size)
	if err != nil {
		return 0, err
	}
	format.PutU64(a.data, int(rec)+recNextOffset, format.ReadU64(a.data, firstOffset))
	format.PutU64(a.data, int(rec)+recPayloadOffset, payload)
	format.PutU32(a.data, int(rec)+recLengthOffset, uint32(size))
	format.PutU16(a.data, int(rec)+recNameLenOffset, uint16(len(name)))
	copy(a.data[int(rec)+recHeaderSize:], name)
	format.PutU64(a.data, firstOffset, rec)
	return payload, nil
}

func align8(off uint64) uint64 {
	return (off + 7) &^ 7
}
