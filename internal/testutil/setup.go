// Package testutil holds shared helpers for package tests.
package testutil

import (
	"os"
	"testing"
)

const (
	// MiB is a mebibyte, for readable segment sizes in tests.
	MiB = 1 << 20
)

// StoreDir returns a fresh store directory for one test.
func StoreDir(t testing.TB) string {
	t.Helper()
	return t.TempDir()
}

// FileSize returns the size of path, failing the test if it cannot stat.
func FileSize(t testing.TB, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}
