package fragmentedqueue

import (
	"fmt"

	"github.com/timzifer/fragmented_queue/internal/vecmath"
)

// Crossover swaps the vectors of numSwaps randomly chosen entries between q
// and other. Positions are drawn from q's FeatureIndexes and applied to both
// queues, so the queues must have equal length. Strengths stay in place. A
// queue without feature entries is left untouched.
func (q *Queue) Crossover(other *Queue, numSwaps int) error {
	if len(q.entries) != len(other.entries) {
		return fmt.Errorf("%w: crossover between queues of length %d and %d", ErrIndexOutOfRange, len(q.entries), len(other.entries))
	}
	if q.Dimension() != other.Dimension() {
		return fmt.Errorf("%w: crossover between %d- and %d-dimensional queues", ErrDimensionMismatch, q.Dimension(), other.Dimension())
	}

	indexes := q.FeatureIndexes()
	if len(indexes) == 0 {
		return nil
	}
	for i := 0; i < numSwaps; i++ {
		idx := indexes[q.rng.IntN(len(indexes))]
		q.entries[idx].Vector, other.entries[idx].Vector = other.entries[idx].Vector, q.entries[idx].Vector
	}
	return nil
}

// AddNoise adds standard-normal noise scaled by magnitude to every vector.
func (q *Queue) AddNoise(magnitude float64) {
	for i := range q.entries {
		vecmath.AddNormal(q.entries[i].Vector, q.rng, magnitude)
	}
}

// ResetFeatures sets every vector to zero. Strengths are kept.
func (q *Queue) ResetFeatures() {
	for i := range q.entries {
		vecmath.Zero(q.entries[i].Vector)
	}
}

// WeightedAverageFeatures replaces each vector with the weighted sum of the
// vectors at the same position in queues. Every source must match q's length
// and dimension and weights must hold one value per source. Strengths are
// kept. q may appear among the sources; its pre-call vectors are used.
func (q *Queue) WeightedAverageFeatures(queues []*Queue, weights []float64) error {
	if len(weights) != len(queues) {
		return fmt.Errorf("%w: %d weights for %d queues", ErrDimensionMismatch, len(weights), len(queues))
	}
	dim := q.Dimension()
	for i, src := range queues {
		if len(src.entries) != len(q.entries) {
			return fmt.Errorf("%w: queue %d has length %d, want %d", ErrDimensionMismatch, i, len(src.entries), len(q.entries))
		}
		if len(src.entries) > 0 && src.Dimension() != dim {
			return fmt.Errorf("%w: queue %d has dimension %d, want %d", ErrDimensionMismatch, i, src.Dimension(), dim)
		}
	}

	averaged := make([][]float64, len(q.entries))
	for j := range averaged {
		averaged[j] = vecmath.Zeros(dim)
	}
	for i, src := range queues {
		for j := range src.entries {
			vecmath.AddScaled(averaged[j], src.entries[j].Vector, weights[i])
		}
	}
	for j := range q.entries {
		q.entries[j].Vector = averaged[j]
	}
	return nil
}

// BasicInterpolate moves every feature vector of q toward a feature vector of
// target by ipStrength of their difference. Features are paired in order,
// cycling through target's features when q has more of them.
func (q *Queue) BasicInterpolate(target *Queue, ipStrength float64) error {
	indexes := q.FeatureIndexes()
	if len(indexes) == 0 {
		return nil
	}
	refIndexes := target.FeatureIndexes()
	if len(refIndexes) == 0 {
		return fmt.Errorf("%w: interpolation target has no feature entries", ErrIndexOutOfRange)
	}
	if q.Dimension() != target.Dimension() {
		return fmt.Errorf("%w: interpolation between %d- and %d-dimensional queues", ErrDimensionMismatch, q.Dimension(), target.Dimension())
	}

	ref := 0
	for _, idx := range indexes {
		vecmath.MoveToward(q.entries[idx].Vector, target.entries[refIndexes[ref]].Vector, ipStrength)
		ref = (ref + 1) % len(refIndexes)
	}
	return nil
}

// ShuffleVectors permutes the vectors while every strength keeps its
// position, breaking the pairing between vector and strength.
func (q *Queue) ShuffleVectors() {
	q.rng.Shuffle(len(q.entries), func(i, j int) {
		q.entries[i].Vector, q.entries[j].Vector = q.entries[j].Vector, q.entries[i].Vector
	})
}

// ShuffleQueue performs Len random swaps of whole entries, keeping each
// vector paired with its strength.
func (q *Queue) ShuffleQueue() {
	n := len(q.entries)
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		src := q.rng.IntN(n)
		dst := q.rng.IntN(n)
		q.entries[src], q.entries[dst] = q.entries[dst], q.entries[src]
	}
}

// HalfAndHalfQueue rotates the queue left by Len/2, moving the front half to
// the back.
func (q *Queue) HalfAndHalfQueue() {
	k := len(q.entries) / 2
	if k == 0 {
		return
	}
	rotated := make([]Entry, 0, len(q.entries))
	rotated = append(rotated, q.entries[k:]...)
	rotated = append(rotated, q.entries[:k]...)
	q.entries = rotated
}
