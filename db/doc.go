// Package db exposes the database facade: a mapped-file segment aggregating
// typed indices behind a composite undo-session protocol.
//
// A DB owns one segment (see package segment) and an insertion-ordered
// registry of indices. Session operations fan out over the registry in
// registration order; that order is part of the contract, since indices may
// depend on one another.
//
// The environment fingerprint embedded in the segment ties an image to the
// toolchain that produced it. Opening an image produced by a different
// toolchain fails rather than attempting any conversion.
package db
