//go:build unix

package segment

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapShared maps length bytes of f shared, read/write when writable.
func mapShared(f *os.File, length int, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(int(f.Fd()), 0, length, prot, unix.MAP_SHARED)
}

// mapAnon allocates a private anonymous region of length bytes.
func mapAnon(length int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: anonymous region of %d bytes: %w", ErrFileIO, length, err)
	}
	return b, nil
}

func unmap(b []byte) error {
	return unix.Munmap(b)
}

func msyncSync(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}

func msyncAsync(b []byte) error {
	return unix.Msync(b, unix.MS_ASYNC)
}

// flockTry takes the advisory write lock without blocking.
func flockTry(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return fmt.Errorf("%w: could not gain write access to the shared memory file", ErrLockBusy)
	}
	if err != nil {
		return fmt.Errorf("%w: flock: %w", ErrFileIO, err)
	}
	return nil
}

func mlockSupported() bool { return true }

func mlockRegion(b []byte) error {
	return unix.Mlock(b)
}
