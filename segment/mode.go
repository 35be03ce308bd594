package segment

import "fmt"

// Mode selects how the segment is resident in memory.
type Mode int

const (
	// ModeMapped exposes the file mapping itself. Minimum memory footprint;
	// pages are demand-loaded and subject to OS paging.
	ModeMapped Mode = iota

	// ModeHeap copies the file into a private anonymous region, trading RAM
	// for freedom from file-backed paging.
	ModeHeap

	// ModeLocked is ModeHeap with the region pinned in physical memory,
	// optionally backed by huge pages. Suited to latency-critical serving.
	ModeLocked
)

// ParseMode parses the surface strings "mapped", "heap", "locked".
// Any other spelling is rejected.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "mapped":
		return ModeMapped, nil
	case "heap":
		return ModeHeap, nil
	case "locked":
		return ModeLocked, nil
	default:
		return 0, fmt.Errorf("segment: unknown residency mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeMapped:
		return "mapped"
	case ModeHeap:
		return "heap"
	case ModeLocked:
		return "locked"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
