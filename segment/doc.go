// Package segment implements the mapped-file manager: the lifecycle of the
// shared-memory file backing a store directory.
//
// A segment is a single contiguous byte range whose size is a multiple of
// the alignment quantum (2 MiB). On disk it lives in shared_memory.bin; in
// memory it is exposed either as the file mapping itself (mapped mode), as a
// private anonymous copy (heap mode), or as a pinned anonymous copy that may
// be backed by huge pages (locked mode).
//
// Writable opens are exclusive, enforced by a non-blocking advisory file
// lock. While a writer holds the segment, a dirty flag inside the image is
// set; it is cleared only on clean shutdown, so a crashed writer leaves the
// flag behind and subsequent opens refuse the file unless told otherwise.
package segment
