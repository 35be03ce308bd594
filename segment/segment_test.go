//go:build unix

package segment

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statebase/statebase/internal/testutil"
)

const testSize = 2 * Quantum

func writableOpts() Options {
	return Options{Writable: true, Size: testSize}
}

func TestOpenCreateAndReopen(t *testing.T) {
	dir := testutil.StoreDir(t)

	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	assert.True(t, s.Created())
	assert.True(t, s.Dirty(), "dirty flag must be set for the whole writable open")
	require.NoError(t, s.Close())

	// Orderly destruction clears the dirty flag on disk.
	r, err := Open(dir, Options{Size: testSize})
	require.NoError(t, err)
	assert.False(t, r.Created())
	assert.False(t, r.Dirty())
	require.NoError(t, r.Close())
}

func TestFileSizeInvariants(t *testing.T) {
	dir := testutil.StoreDir(t)

	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	size := testutil.FileSize(t, filepath.Join(dir, DataFileName))
	assert.Zero(t, size%Quantum)
	assert.GreaterOrEqual(t, size, int64(testSize))
}

func TestOpenSizeNotMultipleOfQuantum(t *testing.T) {
	// 5,000,000 is deliberately not a multiple of 2 MiB.
	_, err := Open(testutil.StoreDir(t), Options{Writable: true, Size: 5_000_000})
	require.ErrorIs(t, err, ErrSizeInvalid)
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := Open(testutil.StoreDir(t), Options{Size: testSize})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGrowInPlace(t *testing.T) {
	dir := testutil.StoreDir(t)

	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	grown, err := Open(dir, Options{Writable: true, Size: 4 * Quantum})
	require.NoError(t, err)
	assert.Equal(t, uint64(4*Quantum), grown.Size())
	require.NoError(t, grown.Close())

	assert.Equal(t, int64(4*Quantum), testutil.FileSize(t, filepath.Join(dir, DataFileName)))
}

func TestDirtyFlagAfterCrash(t *testing.T) {
	dir := testutil.StoreDir(t)

	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	// Simulate abnormal termination: tear down the mappings without
	// running the shutdown protocol. The dirty byte was already synced to
	// disk at open.
	s.releaseAll()
	s.closed = true

	_, err = Open(dir, Options{Writable: true, Size: testSize})
	require.ErrorIs(t, err, ErrDirty)

	recovered, err := Open(dir, Options{Writable: true, Size: testSize, AllowDirty: true})
	require.NoError(t, err)
	require.NoError(t, recovered.Close())

	// Clean close repaired the flag.
	again, err := Open(dir, Options{Size: testSize})
	require.NoError(t, err)
	assert.False(t, again.Dirty())
	require.NoError(t, again.Close())
}

func TestWriterExclusion(t *testing.T) {
	dir := testutil.StoreDir(t)

	first, err := Open(dir, writableOpts())
	require.NoError(t, err)
	defer first.Close()

	// The advisory lock is held per open file description, so a second
	// writable open in the same process is refused just like one from
	// another process.
	_, err = Open(dir, Options{Writable: true, Size: testSize, AllowDirty: true})
	require.ErrorIs(t, err, ErrLockBusy)
}

func TestMultipleReaders(t *testing.T) {
	dir := testutil.StoreDir(t)
	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	r1, err := Open(dir, Options{Size: testSize})
	require.NoError(t, err)
	r2, err := Open(dir, Options{Size: testSize})
	require.NoError(t, err)
	require.NoError(t, r1.Close())
	require.NoError(t, r2.Close())
}

func TestStaleMetaFileRemoved(t *testing.T) {
	dir := testutil.StoreDir(t)
	meta := filepath.Join(dir, metaFileName)
	require.NoError(t, os.WriteFile(meta, []byte("legacy"), 0o644))

	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	defer s.Close()

	_, statErr := os.Stat(meta)
	assert.True(t, os.IsNotExist(statErr), "stale meta file must be removed on writable open")
}

func TestHeapModeRoundTrip(t *testing.T) {
	dir := testutil.StoreDir(t)

	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	off, _, err := s.Arena().FindOrConstruct("payload", 8)
	require.NoError(t, err)
	b, err := s.Arena().Bytes(off, 8)
	require.NoError(t, err)
	copy(b, "original")
	require.NoError(t, s.Close())

	// Heap residency: mutations land in the anonymous copy and reach the
	// file only through the shutdown write-back.
	h, err := Open(dir, Options{Writable: true, Size: testSize, Mode: ModeHeap})
	require.NoError(t, err)
	off, n, ok := h.Arena().Find("payload")
	require.True(t, ok)
	b, err = h.Arena().Bytes(off, n)
	require.NoError(t, err)
	assert.Equal(t, "original", string(b))
	copy(b, "modified")
	require.NoError(t, h.Close())

	r, err := Open(dir, Options{Size: testSize})
	require.NoError(t, err)
	off, n, ok = r.Arena().Find("payload")
	require.True(t, ok)
	b, err = r.Arena().Bytes(off, n)
	require.NoError(t, err)
	assert.Equal(t, "modified", string(b))
	assert.False(t, r.Dirty())
	require.NoError(t, r.Close())
}

func TestHeapModeReadOnly(t *testing.T) {
	dir := testutil.StoreDir(t)
	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	r, err := Open(dir, Options{Size: testSize, Mode: ModeHeap})
	require.NoError(t, err)
	assert.False(t, r.Dirty())
	require.NoError(t, r.Close())

	// The private copy never wrote back: still clean on disk.
	again, err := Open(dir, Options{Size: testSize})
	require.NoError(t, err)
	assert.False(t, again.Dirty())
	require.NoError(t, again.Close())
}

func TestFlushKeepsDirtySet(t *testing.T) {
	dir := testutil.StoreDir(t)
	s, err := Open(dir, writableOpts())
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	assert.True(t, s.Dirty())
	require.NoError(t, s.Close())
}

func TestHugepagePathsRequireLockedMode(t *testing.T) {
	dir := testutil.StoreDir(t)
	_, err := Open(dir, Options{
		Writable:      true,
		Size:          testSize,
		Mode:          ModeHeap,
		HugepagePaths: []string{"/dev/hugepages"},
	})
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

// TestPreloadAbort delivers SIGTERM while a large heap-mode open is copying
// the file, and verifies both the abort error and that the unwind cleared
// the dirty flag on disk.
func TestPreloadAbort(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a large segment")
	}
	dir := testutil.StoreDir(t)

	const bigSize = 512 * Quantum // 1 GiB
	s, err := Open(dir, Options{Writable: true, Size: bigSize})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Hold our own registration so a SIGTERM that lands outside the
	// preload window cannot kill the test process.
	hold := make(chan os.Signal, 1)
	signal.Notify(hold, syscall.SIGTERM)
	defer signal.Stop(hold)

	timer := time.AfterFunc(5*time.Millisecond, func() {
		_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
	})
	defer timer.Stop()

	h, err := Open(dir, Options{Writable: true, Size: bigSize, Mode: ModeHeap})
	if err == nil {
		require.NoError(t, h.Close())
		t.Skip("signal arrived after preload completed")
	}
	require.ErrorIs(t, err, ErrLoadAborted)

	// The abort path must have cleared the dirty flag: a plain reopen
	// does not report a dirty database.
	clean, err := Open(dir, Options{Writable: true, Size: bigSize})
	require.NoError(t, err)
	require.NoError(t, clean.Close())
}
