//go:build darwin

package segment

import "golang.org/x/sys/unix"

// fdatasync on macOS uses F_FULLFSYNC: plain fsync only reaches the drive
// cache, which is not enough for the dirty-byte publication to survive
// power loss.
func fdatasync(fd int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
	return err
}
