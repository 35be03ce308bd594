package db

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statebase/statebase/segment/alloc"
)

func TestCurrentEnvironment(t *testing.T) {
	e := CurrentEnvironment()
	assert.Equal(t, runtime.Version(), e.CompilerString())
	assert.Equal(t, runtime.GOOS == "darwin", e.Apple)
	assert.Equal(t, runtime.GOOS == "windows", e.Windows)
	assert.Equal(t, alloc.FormatVersion, e.AuxVersion)
	assert.Equal(t, debugBuild, e.Debug)
}

func TestEnvironmentEncodeDecode(t *testing.T) {
	e := CurrentEnvironment()
	b := make([]byte, environmentSize)
	e.encode(b)

	got, err := DecodeEnvironment(b)
	require.NoError(t, err)
	assert.True(t, e.Equal(got))
}

func TestEnvironmentDecodeTooSmall(t *testing.T) {
	_, err := DecodeEnvironment(make([]byte, environmentSize-1))
	require.Error(t, err)
}

// Equality is bitwise over all five fields: flipping any single one breaks
// it, including bytes past the compiler string's terminator.
func TestEnvironmentEqualityIsBitwise(t *testing.T) {
	base := CurrentEnvironment()

	mutations := map[string]func(*Environment){
		"compiler head":     func(e *Environment) { e.CompilerVersion[0] ^= 0xFF },
		"compiler trailing": func(e *Environment) { e.CompilerVersion[255] = 1 },
		"debug":             func(e *Environment) { e.Debug = !e.Debug },
		"apple":             func(e *Environment) { e.Apple = !e.Apple },
		"windows":           func(e *Environment) { e.Windows = !e.Windows },
		"aux version":       func(e *Environment) { e.AuxVersion++ },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			other := base
			mutate(&other)
			assert.False(t, base.Equal(other))
			assert.False(t, other.Equal(base))
		})
	}
	assert.True(t, base.Equal(base))
}
