// Package vectorstore defines the nearest-neighbour index used by snapshots.
package vectorstore

import "encoding"

// Neighbor is one search hit: the position of the stored vector (its
// insertion order) and its distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// Index stores fixed-dimension vectors in insertion order and answers kNN
// queries. Position i always refers to the i-th vector added.
type Index interface {
	Dimension() int
	Len() int
	Add(vectors ...[]float32) error
	Search(query []float32, k int) ([]Neighbor, error)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}
