//go:build linux

package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// hugeRegion maps a region of size bytes backed by huge pages, picked from
// the candidate hugetlbfs mounts. Candidates are keyed by their native page
// size (the last mount seen wins a tie, matching long-standing behavior);
// the largest page size that evenly divides size is used. When none fits,
// the region falls back to an anonymous private mapping.
func (s *Segment) hugeRegion(paths []string, size int) ([]byte, error) {
	pageSizeToPath := make(map[int64]string)
	for _, p := range paths {
		var fs unix.Statfs_t
		if err := unix.Statfs(p, &fs); err != nil {
			return nil, fmt.Errorf("%w: could not statfs path %q: %w", ErrFileIO, p, err)
		}
		if fs.Type != unix.HUGETLBFS_MAGIC {
			return nil, fmt.Errorf("%w: %q", ErrHugepageMount, p)
		}
		pageSizeToPath[fs.Bsize] = p
	}

	pageSizes := make([]int64, 0, len(pageSizeToPath))
	for ps := range pageSizeToPath {
		pageSizes = append(pageSizes, ps)
	}
	sort.Slice(pageSizes, func(i, j int) bool { return pageSizes[i] > pageSizes[j] })

	for _, ps := range pageSizes {
		if int64(size)%ps != 0 {
			continue
		}
		region, err := s.hugeFileRegion(pageSizeToPath[ps], size)
		if err != nil {
			return nil, err
		}
		logrus.Infof("database %q using %d byte pages", s.name, ps)
		return region, nil
	}

	logrus.Infof("database %q not using huge pages", s.name)
	return mapAnon(size)
}

// hugeFileRegion creates a uniquely named file of size bytes on the mount,
// maps it, and unlinks the path; the mapping keeps the backing alive.
func (s *Segment) hugeFileRegion(mount string, size int) ([]byte, error) {
	scratch := filepath.Join(mount, uuid.NewString())
	f, err := os.OpenFile(scratch, os.O_RDWR|os.O_CREATE|os.O_EXCL, dataFilePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open hugepage file in %q: %w", ErrFileIO, mount, err)
	}
	defer f.Close()
	defer os.Remove(scratch)

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("%w: failed to grow hugepage file to specified size: %w", ErrFileIO, err)
	}
	region, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: map hugepage file: %w", ErrFileIO, err)
	}
	return region, nil
}
