// Package vecmath provides the dense float64 vector kernels used by the
// fragmented queue. Kernels operate in place on the destination slice and
// never allocate unless their name says so (Clone, Zeros).
//
// Binary kernels only touch the common prefix of their arguments.
package vecmath

import "math/rand/v2"

// Zeros allocates a zero vector of length n.
func Zeros(n int) []float64 {
	return make([]float64, n)
}

// Clone returns an independent copy of v. A nil input yields nil.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// AddScaled performs dst += src*scale.
func AddScaled(dst, src []float64, scale float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i] * scale
	}
}

// Zero sets every element of v to 0.
func Zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

// MoveToward performs v += (target - v) * t.
func MoveToward(v, target []float64, t float64) {
	n := min(len(v), len(target))
	for i := 0; i < n; i++ {
		v[i] += (target[i] - v[i]) * t
	}
}

// AddNormal adds an independently sampled standard-normal value scaled by
// magnitude to every element of v.
func AddNormal(v []float64, rng *rand.Rand, magnitude float64) {
	for i := range v {
		v[i] += rng.NormFloat64() * magnitude
	}
}
