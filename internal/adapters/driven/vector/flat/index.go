package flat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

var magic = [4]byte{'D', 'S', 'F', 'L'}

const formatVersion uint16 = 1

// headerSize is magic + version + dimension + count.
const headerSize = 4 + 2 + 4 + 8

// Index stores vectors back to back in a single slice.
type Index struct {
	dimension int
	data      []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: %w: dimension must be positive", domain.ErrInvalidInput)
	}
	return &Index{dimension: dimension}, nil
}

// Dimension returns the fixed vector length.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	return len(idx.data) / idx.dimension
}

// Add appends vectors. Nothing is added unless every vector has the right
// length and only finite values.
func (idx *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("flat: vector %d has length %d, want %d: %w",
				i, len(v), idx.dimension, domain.ErrDimensionMismatch)
		}
		if !finite(v) {
			return fmt.Errorf("flat: %w: vector %d has a NaN or infinite value", domain.ErrInvalidInput, i)
		}
	}

	idx.data = slices.Grow(idx.data, len(vectors)*idx.dimension)
	for _, v := range vectors {
		idx.data = append(idx.data, v...)
	}
	return nil
}

// Search returns exactly k hits ordered by increasing distance, ties broken
// by position. When k exceeds Len the tail is padded with Position -1.
func (idx *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("flat: query has length %d, want %d: %w",
			len(query), idx.dimension, domain.ErrDimensionMismatch)
	}
	if !finite(query) {
		return nil, fmt.Errorf("flat: %w: query has a NaN or infinite value", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, nil
	}

	n := idx.Len()
	hits := make([]driven.VectorHit, n)
	for i := 0; i < n; i++ {
		hits[i] = driven.VectorHit{
			Position: i,
			Distance: squaredL2(query, idx.data[i*idx.dimension:(i+1)*idx.dimension]),
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k <= n {
		return hits[:k], nil
	}
	for len(hits) < k {
		hits = append(hits, driven.VectorHit{Position: -1, Distance: math.Inf(1)})
	}
	return hits, nil
}

// Truncate drops every vector at position n or later.
func (idx *Index) Truncate(n int) error {
	if n < 0 || n > idx.Len() {
		return fmt.Errorf("flat: %w: truncate to %d of %d", domain.ErrInvalidInput, n, idx.Len())
	}
	idx.data = idx.data[:n*idx.dimension]
	return nil
}

// MarshalBinary encodes the index as
// magic "DSFL" | version u16 | dimension u32 | count u64 | float32 payload,
// all little endian.
func (idx *Index) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+4*len(idx.data)))
	buf.Write(magic[:])
	_ = binary.Write(buf, binary.LittleEndian, formatVersion)
	_ = binary.Write(buf, binary.LittleEndian, uint32(idx.dimension))
	_ = binary.Write(buf, binary.LittleEndian, uint64(idx.Len()))
	if err := binary.Write(buf, binary.LittleEndian, idx.data); err != nil {
		return nil, fmt.Errorf("flat: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the index contents. The encoded dimension must
// match the index dimension.
func (idx *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("flat: %w: short header", domain.ErrIndexCorrupt)
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return fmt.Errorf("flat: %w: bad magic", domain.ErrIndexCorrupt)
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != formatVersion {
		return fmt.Errorf("flat: %w: unsupported version %d", domain.ErrIndexCorrupt, version)
	}

	dim := int(binary.LittleEndian.Uint32(data[6:10]))
	if dim != idx.dimension {
		return fmt.Errorf("flat: %w: stored dimension %d, want %d", domain.ErrIndexCorrupt, dim, idx.dimension)
	}

	count := binary.LittleEndian.Uint64(data[10:18])
	payload := data[headerSize:]
	if uint64(len(payload)) != count*uint64(dim)*4 {
		return fmt.Errorf("flat: %w: payload is %d bytes for %d vectors", domain.ErrIndexCorrupt, len(payload), count)
	}

	values := make([]float32, len(payload)/4)
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, values); err != nil {
		return errors.Join(domain.ErrIndexCorrupt, err)
	}

	if !finite(values) {
		return fmt.Errorf("flat: %w: payload has a NaN or infinite value", domain.ErrIndexCorrupt)
	}

	idx.data = values
	return nil
}

// squaredL2 accumulates in float64, which cannot overflow for finite
// float32 inputs.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func finite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}
