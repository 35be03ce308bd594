package db

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/statebase/statebase/internal/format"
	"github.com/statebase/statebase/segment/alloc"
)

// EnvironmentName is the in-segment name of the fingerprint record.
const EnvironmentName = "environment"

// Environment record layout:
//
//	0x000: compiler version, zero-padded (256 bytes)
//	0x100: debug flag (1 byte)
//	0x101: apple flag (1 byte)
//	0x102: windows flag (1 byte)
//	0x103: auxiliary-library version (uint32)
const (
	compilerVersionWidth = 256
	environmentSize      = compilerVersionWidth + 3 + 4

	envDebugOffset   = compilerVersionWidth
	envAppleOffset   = compilerVersionWidth + 1
	envWindowsOffset = compilerVersionWidth + 2
	envAuxOffset     = compilerVersionWidth + 3
)

// Environment identifies the toolchain and platform that produced a segment
// image. Equality is bitwise over all five fields; trailing zeros of the
// compiler field count.
type Environment struct {
	CompilerVersion [compilerVersionWidth]byte
	Debug           bool
	Apple           bool
	Windows         bool
	AuxVersion      uint32
}

// CurrentEnvironment returns the host fingerprint.
func CurrentEnvironment() Environment {
	var e Environment
	copy(e.CompilerVersion[:], runtime.Version())
	e.Debug = debugBuild
	e.Apple = runtime.GOOS == "darwin"
	e.Windows = runtime.GOOS == "windows"
	e.AuxVersion = alloc.FormatVersion
	return e
}

// Equal reports bitwise equality of the two fingerprints.
func (e Environment) Equal(o Environment) bool {
	return e == o
}

// CompilerString returns the compiler field up to the first zero byte.
func (e Environment) CompilerString() string {
	s := string(e.CompilerVersion[:])
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}

func (e Environment) encode(b []byte) {
	copy(b[:compilerVersionWidth], e.CompilerVersion[:])
	b[envDebugOffset] = boolByte(e.Debug)
	b[envAppleOffset] = boolByte(e.Apple)
	b[envWindowsOffset] = boolByte(e.Windows)
	format.PutU32(b, envAuxOffset, e.AuxVersion)
}

// DecodeEnvironment parses a stored fingerprint record.
func DecodeEnvironment(b []byte) (Environment, error) {
	if len(b) < environmentSize {
		return Environment{}, fmt.Errorf("db: environment record too small: %d bytes", len(b))
	}
	var e Environment
	copy(e.CompilerVersion[:], b[:compilerVersionWidth])
	e.Debug = b[envDebugOffset] != 0
	e.Apple = b[envAppleOffset] != 0
	e.Windows = b[envWindowsOffset] != 0
	e.AuxVersion = format.ReadU32(b, envAuxOffset)
	return e, nil
}

// reportMismatch dumps both fingerprints field by field, the compiler
// version bytes in hex and as a string, before the open fails.
func reportMismatch(host, stored Environment) {
	var sb strings.Builder
	sb.WriteString("environment differences (host vs database):\n compiler version:\n")
	fmt.Fprintf(&sb, "   %x %q\n", host.CompilerVersion[:], host.CompilerString())
	sb.WriteString("   vs\n")
	fmt.Fprintf(&sb, "   %x %q\n", stored.CompilerVersion[:], stored.CompilerString())
	fmt.Fprintf(&sb, " debug: %t vs %t\n", host.Debug, stored.Debug)
	fmt.Fprintf(&sb, " apple: %t vs %t\n", host.Apple, stored.Apple)
	fmt.Fprintf(&sb, " windows: %t vs %t\n", host.Windows, stored.Windows)
	fmt.Fprintf(&sb, " aux library version: %d vs %d", host.AuxVersion, stored.AuxVersion)
	logrus.Error(sb.String())
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
