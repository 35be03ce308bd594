//go:build unix && !linux && !freebsd && !darwin

package segment

import "golang.org/x/sys/unix"

// fdatasync falls back to full fsync where fdatasync is unavailable.
func fdatasync(fd int) error {
	return unix.Fsync(fd)
}
