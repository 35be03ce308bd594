package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegerRoundTrips(t *testing.T) {
	b := make([]byte, 16)

	PutU16(b, 0, 0xBEEF)
	assert.Equal(t, uint16(0xBEEF), ReadU16(b, 0))

	PutU32(b, 2, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), ReadU32(b, 2))

	PutU64(b, 6, 0x0123456789ABCDEF)
	assert.Equal(t, uint64(0x0123456789ABCDEF), ReadU64(b, 6))

	PutI64(b, 8, -42)
	assert.Equal(t, int64(-42), ReadI64(b, 8))
}

func TestAppendMatchesPut(t *testing.T) {
	direct := make([]byte, 12)
	PutU32(direct, 0, 7)
	PutU64(direct, 4, 9)

	var appended []byte
	appended = AppendU32(appended, 7)
	appended = AppendU64(appended, 9)
	assert.Equal(t, direct, appended)

	appended = AppendI64(appended[:0], -1)
	expect := make([]byte, 8)
	PutI64(expect, 0, -1)
	assert.Equal(t, expect, appended)
}

func TestFixedString(t *testing.T) {
	b := make([]byte, 8)
	PutFixedString(b, 0, 8, "go")
	assert.Equal(t, []byte{'g', 'o', 0, 0, 0, 0, 0, 0}, b)
	assert.Equal(t, "go", FixedString(b, 0, 8))

	// Overwrites clear old padding and truncate long strings.
	PutFixedString(b, 0, 8, "a much longer string")
	assert.Equal(t, "a much l", FixedString(b, 0, 8))
}
