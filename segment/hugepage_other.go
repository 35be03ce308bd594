//go:build !linux

package segment

// Hugepage backing is Linux-only; Open rejects hugepage paths on other
// platforms before residency selection runs.
func (s *Segment) hugeRegion(_ []string, _ int) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}
