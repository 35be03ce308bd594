//go:build statebaselockcheck && unix

package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statebase/statebase/db"
	"github.com/statebase/statebase/internal/testutil"
)

func TestRequireLockingPanicsOutsideGuard(t *testing.T) {
	d, err := db.Open(testutil.StoreDir(t), db.ReadWrite, testSize)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Register(newTable("objects")))

	d.SetRequireLocking(true)

	assert.Panics(t, func() { _, _ = d.Get("objects") })

	assert.NotPanics(t, func() {
		_ = d.WithReadLock(func() error {
			_, err := d.Get("objects")
			return err
		})
	})
	assert.NotPanics(t, func() {
		_ = d.WithWriteLock(func() error {
			return d.Register(newTable("more"))
		})
	})

	d.SetRequireLocking(false)
	assert.NotPanics(t, func() { _, _ = d.Get("objects") })
}
