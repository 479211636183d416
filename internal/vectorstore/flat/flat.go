// Package flat provides an exact L2 index that scans every stored vector. It
// keeps vectors in insertion order and serialises to a compact binary format.
package flat

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"lorerag/internal/domain"
	"lorerag/internal/vectorstore"
)

const (
	magic         = "LRIX"
	formatVersion = 1
	headerSize    = 16
)

// Index is a brute-force Euclidean index. It is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

var _ vectorstore.Index = (*Index)(nil)

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", domain.ErrInvalidConfiguration, dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Dimension returns the dimension every stored vector has.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Add appends vectors in order. Either all of them are added or none.
func (ix *Index) Add(vectors ...[]float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, v := range vectors {
		if len(v) != ix.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", domain.ErrInvalidConfiguration, i, len(v), ix.dimension)
		}
	}
	for _, v := range vectors {
		ix.vectors = append(ix.vectors, append([]float32(nil), v...))
	}
	return nil
}

// Search returns up to k nearest vectors, nearest first. Equal distances
// keep insertion order. Asking for more than Len neighbours returns all.
func (ix *Index) Search(query []float32, k int) ([]vectorstore.Neighbor, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if k <= 0 {
		return nil, fmt.Errorf("flat: k must be positive, got %d", k)
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("flat: query dimension %d != index dimension %d", len(query), ix.dimension)
	}
	hits := make([]vectorstore.Neighbor, len(ix.vectors))
	for i, v := range ix.vectors {
		d := l2(query, v)
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		hits[i] = vectorstore.Neighbor{Position: i, Distance: d}
	}
	slices.SortStableFunc(hits, func(a, b vectorstore.Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// MarshalBinary stores: magic, version(uint32), dim(uint32), n(uint32), then
// n*dim little-endian float32 values in insertion order.
func (ix *Index) MarshalBinary() ([]byte, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]byte, headerSize, headerSize+4*ix.dimension*len(ix.vectors))
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], formatVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(ix.dimension))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(ix.vectors)))
	for _, v := range ix.vectors {
		for _, x := range v {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(x))
		}
	}
	return out, nil
}

// UnmarshalBinary replaces the index contents with a serialised index.
func (ix *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || string(data[0:4]) != magic {
		return errors.New("flat: not an index file")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return fmt.Errorf("flat: unsupported format version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := int(binary.LittleEndian.Uint32(data[12:16]))
	if dim <= 0 {
		return fmt.Errorf("flat: invalid dimension %d", dim)
	}
	if want := headerSize + 4*dim*n; len(data) != want {
		return fmt.Errorf("flat: truncated index: %d bytes, want %d", len(data), want)
	}
	vectors := make([][]float32, n)
	off := headerSize
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = vec
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.dimension = dim
	ix.vectors = vectors
	return nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
