// Package embeddings provides small numeric utilities for embedding vectors.
package embeddings

import (
	"math"
)

// NormalizeL2 scales a vector to unit length in place. Distances and dot
// products in the ranking pipeline assume unit vectors, so every embedding is
// normalized once, right after it comes back from the model.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	// A real model embedding is never all zeros, but don't divide by zero.
	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Dot returns the dot product of a and b over their common prefix. For unit
// vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}
