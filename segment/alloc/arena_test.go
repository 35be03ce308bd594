package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(t *testing.T, size int) []byte {
	t.Helper()
	return make([]byte, size)
}

func TestFormatAndAttach(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), a.Size())
	assert.Equal(t, uint64(HeaderSize), a.Used())

	// A formatted image must attach cleanly.
	b, err := Attach(data)
	require.NoError(t, err)
	assert.Equal(t, a.Size(), b.Size())
}

func TestFormatTooSmall(t *testing.T) {
	_, err := Format(newImage(t, HeaderSize-1))
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestAttachRejectsGarbage(t *testing.T) {
	t.Run("zero image", func(t *testing.T) {
		_, err := Attach(newImage(t, 4096))
		require.ErrorIs(t, err, ErrBadHeader)
	})
	t.Run("too small", func(t *testing.T) {
		_, err := Attach(newImage(t, 8))
		require.ErrorIs(t, err, ErrBadHeader)
	})
	t.Run("corrupt bump", func(t *testing.T) {
		data := newImage(t, 4096)
		_, err := Format(data)
		require.NoError(t, err)
		data[0x18] = 0xFF // bump pointer beyond recorded size
		data[0x19] = 0xFF
		_, err = Attach(data)
		require.ErrorIs(t, err, ErrBadHeader)
	})
}

func TestAllocateAligns(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)

	off1, err := a.Allocate(3)
	require.NoError(t, err)
	off2, err := a.Allocate(8)
	require.NoError(t, err)

	assert.Zero(t, off1%8)
	assert.Zero(t, off2%8)
	assert.Greater(t, off2, off1)
}

func TestAllocateExhaustion(t *testing.T) {
	data := newImage(t, 128)
	a, err := Format(data)
	require.NoError(t, err)

	_, err = a.Allocate(128)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestFindOrConstruct(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)

	off, created, err := a.FindOrConstruct("dirty", 1)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := a.FindOrConstruct("dirty", 1)
	require.NoError(t, err)
	assert.False(t, created, "second construct must be a lookup")
	assert.Equal(t, off, again)

	// Payload starts zeroed.
	b, err := a.Bytes(off, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(0), b[0])

	_, _, err = a.FindOrConstruct("dirty", 64)
	require.ErrorIs(t, err, ErrTooSmall)
}

func TestFindIsReadOnly(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)
	_, _, err = a.FindOrConstruct("one", 16)
	require.NoError(t, err)

	snapshot := make([]byte, len(data))
	copy(snapshot, data)

	_, _, ok := a.Find("one")
	assert.True(t, ok)
	_, _, ok = a.Find("absent")
	assert.False(t, ok)

	assert.Equal(t, snapshot, data, "Find must not mutate the image")
}

func TestNames(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		_, _, err := a.FindOrConstruct(name, 8)
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, a.Names())
}

func TestReallocate(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)

	off, err := a.Reallocate("table", 16)
	require.NoError(t, err)

	// Shrinking or equal requests keep the payload in place.
	same, err := a.Reallocate("table", 8)
	require.NoError(t, err)
	assert.Equal(t, off, same)

	// Growth repoints the record at a fresh payload.
	grown, err := a.Reallocate("table", 64)
	require.NoError(t, err)
	assert.NotEqual(t, off, grown)

	found, n, ok := a.Find("table")
	require.True(t, ok)
	assert.Equal(t, grown, found)
	assert.Equal(t, 64, n)
}

// Relocation is the point of self-relative offsets: an image copied to a
// different base address must resolve the same objects.
func TestRelocation(t *testing.T) {
	data := newImage(t, 4096)
	a, err := Format(data)
	require.NoError(t, err)

	off, _, err := a.FindOrConstruct("payload", 4)
	require.NoError(t, err)
	b, err := a.Bytes(off, 4)
	require.NoError(t, err)
	copy(b, "wxyz")

	moved := make([]byte, len(data))
	copy(moved, data)
	require.NoError(t, a.Rebase(moved))

	gotOff, n, ok := a.Find("payload")
	require.True(t, ok)
	assert.Equal(t, off, gotOff)
	got, err := a.Bytes(gotOff, n)
	require.NoError(t, err)
	assert.Equal(t, "wxyz", string(got))
}

func TestBytesBounds(t *testing.T) {
	data := newImage(t, 256)
	a, err := Format(data)
	require.NoError(t, err)

	_, err = a.Bytes(250, 16)
	require.ErrorIs(t, err, ErrBadRef)
	_, err = a.Bytes(0, -1)
	require.ErrorIs(t, err, ErrBadRef)
}
