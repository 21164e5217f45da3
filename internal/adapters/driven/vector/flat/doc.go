// Package flat provides an exact brute-force vector index using squared
// Euclidean distance.
//
// Index is not safe for concurrent use; indexstore.Store serialises access.
package flat
