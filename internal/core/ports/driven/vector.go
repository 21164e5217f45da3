package driven

// VectorIndex is a positional exact nearest neighbour index.
// Vectors are addressed by insertion order; position N always refers to the
// Nth vector ever added since the last Truncate or UnmarshalBinary.
type VectorIndex interface {
	// Dimension returns the fixed vector length.
	Dimension() int

	// Len returns the number of stored vectors.
	Len() int

	// Add appends vectors in order. Every vector must have length Dimension().
	Add(vectors [][]float32) error

	// Search returns up to k hits ordered by increasing distance.
	// Positions the index cannot fill are reported as -1.
	Search(query []float32, k int) ([]VectorHit, error)

	// Truncate drops every vector at position n or later.
	Truncate(n int) error

	// MarshalBinary serialises the index.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary replaces the index contents.
	UnmarshalBinary(data []byte) error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Position is the insertion index of the matched vector, or -1.
	Position int

	// Distance is the squared L2 distance to the query.
	Distance float64
}
