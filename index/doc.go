// Package index provides the stock typed index: an ordered collection of
// values keyed by uint64 IDs, with a multi-level undo stack and a persisted
// image inside the segment.
//
// A Table satisfies the db.Index contract. Mutations between
// StartUndoSession and a Push are captured in an undo frame; frames stack
// to arbitrary depth and can be squashed together, rolled back one at a
// time, or made permanent by revision through Commit.
//
// Values cross the segment boundary through a Codec. The table itself lives
// in process memory; its current contents, including changes held in
// pending undo frames, are serialized into a named segment object on Store
// and replayed on Bind.
package index
