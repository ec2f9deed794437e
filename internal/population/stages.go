package population

import (
	"context"
	"fmt"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/core"
)

// Edit stages Apply on a copy of Target and publishes the copy with
// Replace. A failing Apply leaves Target untouched.
type Edit struct {
	Name   string
	Target *fq.Queue
	Apply  func(q *fq.Queue) error
}

// Prepare implements core.Stage.
func (e *Edit) Prepare(ctx context.Context) (func(), func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	staged := e.Target.Copy()
	if err := e.Apply(staged); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return func() { e.Target.Replace(staged) }, nil, nil
}

// Mutation adds Gaussian noise of the given magnitude to target.
func Mutation(target *fq.Queue, magnitude float64) core.Stage {
	return &Edit{Name: "mutate", Target: target, Apply: func(q *fq.Queue) error {
		q.AddNoise(magnitude)
		return nil
	}}
}

// Interpolation moves target's features toward those of toward.
func Interpolation(target, toward *fq.Queue, strength float64) core.Stage {
	return &Edit{Name: "interpolate", Target: target, Apply: func(q *fq.Queue) error {
		return q.BasicInterpolate(toward, strength)
	}}
}

// Average replaces target's vectors with the weighted sum of sources.
// target may be one of the sources.
func Average(target *fq.Queue, sources []*fq.Queue, weights []float64) core.Stage {
	return &Edit{Name: "average", Target: target, Apply: func(q *fq.Queue) error {
		in := make([]*fq.Queue, len(sources))
		for i, src := range sources {
			if src == target {
				in[i] = q
				continue
			}
			in[i] = src
		}
		return q.WeightedAverageFeatures(in, weights)
	}}
}

// Shuffle permutes target's entries, or only its vectors when vectorsOnly
// is set.
func Shuffle(target *fq.Queue, vectorsOnly bool) core.Stage {
	return &Edit{Name: "shuffle", Target: target, Apply: func(q *fq.Queue) error {
		if vectorsOnly {
			q.ShuffleVectors()
		} else {
			q.ShuffleQueue()
		}
		return nil
	}}
}

// Rotate moves the front half of target to the back.
func Rotate(target *fq.Queue) core.Stage {
	return &Edit{Name: "rotate", Target: target, Apply: func(q *fq.Queue) error {
		q.HalfAndHalfQueue()
		return nil
	}}
}

// CrossoverStage swaps feature vectors between A and B, then optionally adds
// noise to both children.
type CrossoverStage struct {
	A, B           *fq.Queue
	Swaps          int
	NoiseMagnitude float64
}

// Prepare implements core.Stage.
func (s *CrossoverStage) Prepare(ctx context.Context) (func(), func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	a, b := s.A.Copy(), s.B.Copy()
	if err := a.Crossover(b, s.Swaps); err != nil {
		return nil, nil, fmt.Errorf("crossover: %w", err)
	}
	if s.NoiseMagnitude != 0 {
		a.AddNoise(s.NoiseMagnitude)
		b.AddNoise(s.NoiseMagnitude)
	}
	publish := func() {
		s.A.Replace(a)
		s.B.Replace(b)
	}
	return publish, nil, nil
}
