// Package vectormath provides the numeric routines behind semantic search:
// normalization, cosine similarity, weighted mixing, and debiasing.
// All vectors are float32; accumulation happens in float64 for stability.
package vectormath

import (
	"math"
	"sort"
)

// Normalize returns v scaled to unit length.
// A zero vector is returned unchanged (documented guard, not an error).
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// Cosine returns the cosine similarity of a and b, a scalar in [-1, 1]
// up to float rounding. Either vector being zero yields 0.
func Cosine(a, b []float32) float64 {
	return dot(Normalize(a), Normalize(b))
}

// WeightedVector pairs a vector with a signed mixing weight.
type WeightedVector struct {
	Vector []float32
	Weight float64
}

// Mix returns the normalized weighted sum of the named vectors.
// Summation order is lexicographic by name so results are reproducible
// regardless of map iteration order.
func Mix(vectors map[string]WeightedVector) []float32 {
	names := make([]string, 0, len(vectors))
	dim := 0
	for name, wv := range vectors {
		names = append(names, name)
		if len(wv.Vector) > dim {
			dim = len(wv.Vector)
		}
	}
	sort.Strings(names)

	sum := make([]float64, dim)
	for _, name := range names {
		wv := vectors[name]
		for i, val := range wv.Vector {
			sum[i] += wv.Weight * float64(val)
		}
	}

	mixed := make([]float32, dim)
	for i, val := range sum {
		mixed[i] = float32(val)
	}
	return Normalize(mixed)
}

// Debias removes from main the component that lies along bias's direction
// (orthogonal projection subtraction), then normalizes. A zero bias
// degenerates to Normalize(main).
func Debias(main, bias []float32) []float32 {
	unit := Normalize(bias)
	projection := dot(main, unit)

	debiased := make([]float32, len(main))
	for i, val := range main {
		var b float64
		if i < len(unit) {
			b = float64(unit[i])
		}
		debiased[i] = float32(float64(val) - projection*b)
	}
	return Normalize(debiased)
}

// dot computes the float64 dot product of two float32 vectors.
// Trailing elements beyond the shorter vector are ignored.
func dot(a, b []float32) float64 {
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
