package segment

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/statebase/statebase/segment/alloc"
)

const (
	// Quantum is the alignment requirement for segment sizes, chosen to
	// match the largest anticipated huge-page size.
	Quantum = 2 * 1024 * 1024

	// DataFileName is the segment's on-disk file inside the store directory.
	DataFileName = "shared_memory.bin"

	// metaFileName is a legacy sibling artifact; writable opens remove it.
	metaFileName = "shared_memory.meta"

	// DirtyFlagName is the in-segment name of the single-byte dirty flag.
	// The literal is stable across builds; images written by older builds
	// must keep resolving it.
	DirtyFlagName = "chainbase::db_dirty_flag"

	dataFilePerm = 0o664
)

// Options configure Open.
type Options struct {
	// Writable opens the segment read/write and takes the writer lock.
	Writable bool

	// Size is the requested segment size in bytes. Must be a multiple of
	// Quantum. An existing file larger than Size keeps its size; a smaller
	// one is grown in place on writable opens.
	Size uint64

	// AllowDirty permits opening an image whose dirty flag is set.
	AllowDirty bool

	// Mode selects residency: mapped, heap, or locked.
	Mode Mode

	// HugepagePaths lists candidate hugetlbfs mount points for locked mode.
	HugepagePaths []string
}

// Segment is an open mapped-file segment. It exclusively owns the file
// handle, the advisory lock, and the exposed address range.
type Segment struct {
	dir      string
	path     string
	name     string
	writable bool
	mode     Mode
	created  bool

	f       *os.File
	fileMap []byte // live file mapping; nil after preload releases it
	region  []byte // exposed address range
	anon    bool   // region is an anonymous copy (heap/locked)
	pinned  bool

	arena    *alloc.Arena
	dirtyOff uint64
	closed   bool
}

// Open opens or creates the segment under dir according to opts.
func Open(dir string, opts Options) (*Segment, error) {
	if opts.Size%Quantum != 0 {
		return nil, fmt.Errorf("%w: size must be a multiple of %d bytes, got %d", ErrSizeInvalid, Quantum, opts.Size)
	}
	if len(opts.HugepagePaths) > 0 {
		if runtime.GOOS != "linux" {
			return nil, fmt.Errorf("%w: hugepage support is a linux only feature", ErrUnsupportedPlatform)
		}
		if opts.Mode != ModeLocked {
			return nil, fmt.Errorf("%w: locked mode is required for hugepage usage", ErrUnsupportedPlatform)
		}
	}
	if opts.Mode == ModeLocked && !mlockSupported() {
		return nil, fmt.Errorf("%w: locked mode requires memory pinning", ErrUnsupportedPlatform)
	}

	s := &Segment{
		dir:      dir,
		path:     filepath.Join(dir, DataFileName),
		name:     filepath.Base(filepath.Clean(dir)),
		writable: opts.Writable,
		mode:     opts.Mode,
	}

	if !opts.Writable {
		if _, err := os.Stat(s.path); err != nil {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, s.path)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory %q: %w", ErrFileIO, dir, err)
	}

	if err := s.openFile(opts); err != nil {
		return nil, err
	}
	if err := s.attach(opts); err != nil {
		s.releaseAll()
		return nil, err
	}
	if err := s.selectResidency(opts); err != nil {
		// attach has already set the dirty flag on writable opens; the
		// unwind must clear it so a retry does not see a spurious dirty
		// state.
		s.clearDirtyOnUnwind()
		s.releaseAll()
		return nil, err
	}
	return s, nil
}

// openFile creates or opens shared_memory.bin, growing it in place when the
// requested size exceeds the existing file size.
func (s *Segment) openFile(opts Options) error {
	info, statErr := os.Stat(s.path)
	switch {
	case statErr == nil:
		flag := os.O_RDONLY
		if opts.Writable {
			flag = os.O_RDWR
		}
		f, err := os.OpenFile(s.path, flag, 0)
		if err != nil {
			return fmt.Errorf("%w: open %q: %w", ErrFileIO, s.path, err)
		}
		s.f = f
		if opts.Writable && opts.Size > uint64(info.Size()) {
			if err := f.Truncate(int64(opts.Size)); err != nil {
				_ = f.Close()
				s.f = nil
				return fmt.Errorf("%w: could not grow database file to requested size: %w", ErrFileIO, err)
			}
		}
	case os.IsNotExist(statErr) && opts.Writable:
		f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, dataFilePerm)
		if err != nil {
			return fmt.Errorf("%w: create %q: %w", ErrFileIO, s.path, err)
		}
		if err := f.Truncate(int64(opts.Size)); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: size %q to %d bytes: %w", ErrFileIO, s.path, opts.Size, err)
		}
		s.f = f
		s.created = true
	default:
		return fmt.Errorf("%w: stat %q: %w", ErrFileIO, s.path, statErr)
	}
	return nil
}

// attach maps the file, attaches (or formats) the arena, resolves the dirty
// flag, and on writable opens takes the lock and publishes the dirty state.
func (s *Segment) attach(opts Options) error {
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %q: %w", ErrFileIO, s.path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: size is zero", ErrSizeInvalid)
	}

	s.fileMap, err = mapShared(s.f, int(info.Size()), s.writable)
	if err != nil {
		return fmt.Errorf("%w: map %q: %w", ErrFileIO, s.path, err)
	}
	s.region = s.fileMap

	if s.created {
		s.arena, err = alloc.Format(s.fileMap)
	} else {
		s.arena, err = alloc.Attach(s.fileMap)
	}
	if err != nil {
		return fmt.Errorf("attach segment arena: %w", err)
	}
	if s.writable && uint64(len(s.fileMap)) > s.arena.Size() {
		// The file was grown in place; the arena's logical size follows.
		if err := s.arena.Grow(uint64(len(s.fileMap))); err != nil {
			return err
		}
	}

	if s.writable {
		off, _, err := s.arena.FindOrConstruct(DirtyFlagName, 1)
		if err != nil {
			return fmt.Errorf("construct dirty flag: %w", err)
		}
		s.dirtyOff = off
	} else {
		off, _, ok := s.arena.Find(DirtyFlagName)
		if !ok {
			return ErrMissingSentinel
		}
		s.dirtyOff = off
	}

	if !opts.AllowDirty && s.fileMap[s.dirtyOff] != 0 {
		return ErrDirty
	}

	if s.writable {
		// Legacy artifact cleanup.
		if err := os.Remove(filepath.Join(s.dir, metaFileName)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove stale meta file: %w", ErrFileIO, err)
		}
		if err := flockTry(s.f); err != nil {
			return err
		}
		s.fileMap[s.dirtyOff] = 1
		if err := msyncSync(s.fileMap); err != nil {
			s.fileMap[s.dirtyOff] = 0
			return fmt.Errorf("%w: publish dirty flag: %w", ErrFileIO, err)
		}
	}
	return nil
}

// selectResidency leaves mapped mode as-is, or copies the image into an
// anonymous region for heap and locked modes, releasing the file mapping.
func (s *Segment) selectResidency(opts Options) error {
	if opts.Mode == ModeMapped {
		return nil
	}

	var (
		region []byte
		err    error
	)
	if opts.Mode == ModeLocked && len(opts.HugepagePaths) > 0 {
		region, err = s.hugeRegion(opts.HugepagePaths, len(s.fileMap))
	} else {
		region, err = mapAnon(len(s.fileMap))
	}
	if err != nil {
		return err
	}

	if err := s.preload(region, s.fileMap); err != nil {
		_ = unmap(region)
		return err
	}

	if opts.Mode == ModeLocked {
		if err := mlockRegion(region); err != nil {
			_ = unmap(region)
			return fmt.Errorf("%w %q: %w", ErrPinFailed, s.name, err)
		}
		s.pinned = true
		logrus.Infof("database %q has been successfully locked in memory", s.name)
	}

	// The arena header sits at a fixed position within the image, so
	// reattaching over the copy needs no re-parse beyond validation.
	if err := s.arena.Rebase(region); err != nil {
		_ = unmap(region)
		return err
	}
	s.region = region
	s.anon = true
	_ = unmap(s.fileMap)
	s.fileMap = nil
	return nil
}

// preload copies the file image into dst in Quantum-sized chunks, polling a
// scoped signal set between chunks so Ctrl-C, TERM, or PIPE aborts cleanly.
func (s *Segment) preload(dst, src []byte) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)
	defer signal.Stop(sig)

	logrus.Infof("preloading %q database file, this could take a moment...", s.name)
	last := time.Now()
	for off := 0; off < len(src); {
		select {
		case <-sig:
			return ErrLoadAborted
		default:
		}
		n := Quantum
		if rest := len(src) - off; rest < n {
			n = rest
		}
		copy(dst[off:off+n], src[off:off+n])
		off += n
		if time.Since(last) >= time.Second {
			last = time.Now()
			logrus.Infof("  %d%% complete...", off*100/len(src))
		}
	}
	return nil
}

// clearDirtyOnUnwind clears the published dirty flag on the file mapping and
// syncs it, so a failed open does not leave a spurious dirty state behind.
func (s *Segment) clearDirtyOnUnwind() {
	if !s.writable || s.fileMap == nil {
		return
	}
	s.fileMap[s.dirtyOff] = 0
	if err := msyncSync(s.fileMap); err != nil {
		logrus.Errorf("failed to msync database file: %v", err)
	}
}

// releaseAll tears down mappings and the file handle without running the
// shutdown protocol. Used on open-path unwinds only.
func (s *Segment) releaseAll() {
	if s.anon && s.region != nil {
		_ = unmap(s.region)
		s.region = nil
	}
	if s.fileMap != nil {
		_ = unmap(s.fileMap)
		s.fileMap = nil
		s.region = nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
}

// Data returns the exposed address range.
func (s *Segment) Data() []byte { return s.region }

// Arena returns the in-segment allocator and name table.
func (s *Segment) Arena() *alloc.Arena { return s.arena }

// Size returns the segment size in bytes.
func (s *Segment) Size() uint64 { return uint64(len(s.region)) }

// Dir returns the store directory.
func (s *Segment) Dir() string { return s.dir }

// Writable reports whether this segment holds the writer lock.
func (s *Segment) Writable() bool { return s.writable }

// ResidencyMode returns the mode selected at open.
func (s *Segment) ResidencyMode() Mode { return s.mode }

// Created reports whether Open constructed a fresh segment image.
func (s *Segment) Created() bool { return s.created }

// Dirty reports the current value of the in-image dirty flag.
func (s *Segment) Dirty() bool { return s.region[s.dirtyOff] != 0 }

// Flush forces a full sync of the live mapping without clearing the dirty
// flag. In heap and locked modes the image has no file backing until Close
// writes it back, so Flush is a no-op there.
func (s *Segment) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if s.anon {
		return nil
	}
	if err := msyncSync(s.region); err != nil {
		return fmt.Errorf("%w: msync: %w", ErrFileIO, err)
	}
	return nil
}

// Close runs the shutdown protocol. For writable segments in heap or locked
// mode the in-memory copy is written back first; then the dirty flag is
// cleared and published. Failures are reported but never abort the
// remaining steps: teardown always completes.
func (s *Segment) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.writable {
		if s.anon {
			s.saveBack()
		}
		s.region[s.dirtyOff] = 0
		if s.anon {
			s.finalizeDirtyByte()
		} else if err := msyncSync(s.region); err != nil {
			logrus.Errorf("failed to msync database file: %v", err)
		}
	}

	if s.region != nil {
		_ = unmap(s.region)
		s.region = nil
		s.fileMap = nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	return nil
}

// saveBack rewrites the on-disk file from the anonymous copy in
// Quantum-sized chunks. Chunks that are all zero on both sides are skipped,
// preserving sparseness on freshly created files; a zero source chunk over
// non-zero disk contents is explicitly zeroed.
func (s *Segment) saveBack() {
	dst, err := mapShared(s.f, len(s.region), true)
	if err != nil {
		logrus.Errorf("failed to map %q for write-back: %v", s.path, err)
		return
	}

	logrus.Infof("writing %q database file, this could take a moment...", s.name)
	last := time.Now()
	for off := 0; off < len(s.region); {
		n := Quantum
		if rest := len(s.region) - off; rest < n {
			n = rest
		}
		src := s.region[off : off+n]
		if !allZeros(src) {
			copy(dst[off:off+n], src)
		} else if !allZeros(dst[off : off+n]) {
			zeroFill(dst[off : off+n])
		}
		off += n
		if time.Since(last) >= time.Second {
			last = time.Now()
			logrus.Infof("  %d%% complete...", off*100/len(s.region))
		}
	}

	if err := msyncAsync(dst); err != nil {
		logrus.Errorf("syncing buffers failed: %v", err)
	}
	_ = unmap(dst)
}

// finalizeDirtyByte publishes the cleared dirty flag on the on-disk file
// after the bulk image has been rewritten. The ordering is mandatory: flag
// write, then flush.
func (s *Segment) finalizeDirtyByte() {
	if _, err := s.f.WriteAt([]byte{0}, int64(s.dirtyOff)); err != nil {
		logrus.Errorf("syncing dirty bit failed: %v", err)
		return
	}
	if err := fdatasync(int(s.f.Fd())); err != nil {
		logrus.Errorf("syncing dirty bit failed: %v", err)
	}
}

func allZeros(b []byte) bool {
	for len(b) >= 8 {
		if b[0]|b[1]|b[2]|b[3]|b[4]|b[5]|b[6]|b[7] != 0 {
			return false
		}
		b = b[8:]
	}
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func zeroFill(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
