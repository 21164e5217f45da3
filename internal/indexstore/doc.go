// Package indexstore keeps a vector index and the chunk records it was built
// from in lockstep, and persists both as a matched pair of files.
//
// Position is the only link between a vector and its record: the Nth record
// describes the Nth vector. Every mutation preserves
//
//	index.Len() == len(records) == len(identity)
//
// and persistence stamps both artifacts with the same generation ID and
// record count, so Load never pairs an index with foreign records.
package indexstore
