// Package alloc implements the in-segment arena: a bump-pointer allocator
// and a persistent name table living at the start of the segment image.
//
// Every offset stored inside the image is relative to the segment base, so
// the whole image can be copied into an anonymous region (heap and locked
// residency modes) and reattached at a different address without fix-ups.
//
// The arena is append-only: Allocate never reuses space and there is no
// Free. Named objects that are reallocated to a larger payload leave their
// old payload behind as dead space. This matches the store's write pattern,
// where named objects are few and long-lived.
package alloc
