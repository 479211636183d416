// Package embedding holds the pieces shared by every embedding model: vector
// validation and normalisation. Concrete models live in sub-packages.
package embedding

import (
	"fmt"
	"math"
)

// CheckBatch verifies that a model returned one vector per input, each with
// the expected dimension.
func CheckBatch(vectors [][]float32, inputs, dimension int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("embedding: got %d vectors for %d inputs", len(vectors), inputs)
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("embedding: vector %d has dimension %d, want %d", i, len(v), dimension)
		}
	}
	return nil
}

// Normalize scales v to unit L2 length in place. Zero vectors are left alone.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
