//go:build !unix

package segment

import "os"

// The mapped-file manager needs mmap, msync, and flock equivalents; on
// platforms without them the segment cannot provide its durability
// guarantees, so opens fail outright rather than degrade silently.

func mapShared(_ *os.File, _ int, _ bool) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}

func mapAnon(_ int) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}

func unmap(_ []byte) error { return nil }

func msyncSync(_ []byte) error { return ErrUnsupportedPlatform }

func msyncAsync(_ []byte) error { return ErrUnsupportedPlatform }

func flockTry(_ *os.File) error { return ErrUnsupportedPlatform }

func mlockSupported() bool { return false }

func mlockRegion(_ []byte) error { return ErrUnsupportedPlatform }

func fdatasync(_ int) error { return ErrUnsupportedPlatform }
