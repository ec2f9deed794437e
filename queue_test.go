package fragmentedqueue

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

const tolerance = 1e-12

func vectorsClose(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func mustEnqueue(t testing.TB, q *Queue, vector []float64, strength float64) {
	t.Helper()
	if err := q.EnqueueStep(vector, strength); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
}

func TestQueueEnqueueAndFullness(t *testing.T) {
	q := NewQueue(1.0, WithSeed(1))

	if !q.IsEmpty() || q.IsFull() {
		t.Fatalf("new queue should be empty and not full")
	}

	mustEnqueue(t, q, []float64{1, 0}, 0.25)
	if q.IsFull() {
		t.Fatalf("queue with strength 0.25 should not be full")
	}

	mustEnqueue(t, q, []float64{0, 1}, 0.75)
	if !q.IsFull() || !q.HasFullBuffer() {
		t.Fatalf("queue with strength 1.0 should be full")
	}
	if got := q.TotalStrength(); got != 1.0 {
		t.Fatalf("expected total strength 1.0, got %v", got)
	}
	if got := q.Len(); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
	if got := q.Dimension(); got != 2 {
		t.Fatalf("expected dimension 2, got %d", got)
	}
}

func TestQueueEnqueueExceedsFragmentStrength(t *testing.T) {
	q := NewQueue(1.0)
	for i := 0; i < 5; i++ {
		mustEnqueue(t, q, []float64{float64(i)}, 1)
	}
	if got := q.TotalStrength(); got != 5 {
		t.Fatalf("enqueue must not cap total strength, got %v", got)
	}
}

func TestQueueEnqueueRejectsDimensionMismatch(t *testing.T) {
	q := NewQueue(1.0)
	mustEnqueue(t, q, []float64{1, 2}, 0.5)

	err := q.EnqueueStep([]float64{1, 2, 3}, 0.5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if q.Len() != 1 || q.TotalStrength() != 0.5 {
		t.Fatalf("failed enqueue mutated the queue: %v", q)
	}
}

func TestQueueEnqueueCopiesVector(t *testing.T) {
	q := NewQueue(1.0)
	v := []float64{1, 2}
	mustEnqueue(t, q, v, 1)
	v[0] = 99

	got, err := q.Peek()
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if got[0] != 1 {
		t.Fatalf("queue aliased the producer buffer, got %v", got)
	}
}

func TestQueuePeekEmpty(t *testing.T) {
	q := NewQueue(1.0)
	if _, err := q.Peek(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue from Peek, got %v", err)
	}
	if _, err := q.DequeueStep(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue from DequeueStep, got %v", err)
	}
}

func TestQueuePartialBlend(t *testing.T) {
	q := NewQueue(1.0)
	v1 := []float64{1, 2, 3}
	v2 := []float64{-1, 0, 5}
	mustEnqueue(t, q, v1, 0.3)
	mustEnqueue(t, q, v2, 0.2)

	got, err := q.Peek()
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	expected := []float64{0.3*1 + 0.2*-1, 0.3 * 2, 0.3*3 + 0.2*5}
	if !vectorsClose(got, expected, tolerance) {
		t.Fatalf("unexpected partial blend: got %v want %v", got, expected)
	}
}

func TestQueueFullStrengthBlendClipsLastEntry(t *testing.T) {
	q := NewQueue(1.0)
	a := []float64{1, 0, 0, 0}
	b := []float64{0, 1, 0, 0}
	c := []float64{0, 0, 1, 0}
	d := []float64{0, 0, 0, 1}
	mustEnqueue(t, q, a, 0.5)
	mustEnqueue(t, q, b, 0.25)
	mustEnqueue(t, q, c, 0.5)
	mustEnqueue(t, q, d, 1)

	got, err := q.Peek()
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	expected := []float64{0.5, 0.25, 0.25, 0}
	if !vectorsClose(got, expected, tolerance) {
		t.Fatalf("unexpected blend: got %v want %v", got, expected)
	}

	weight := 0.0
	for _, x := range got {
		weight += x
	}
	if math.Abs(weight-q.FragmentStrength()) > tolerance {
		t.Fatalf("blend weights sum to %v, want %v", weight, q.FragmentStrength())
	}
}

func TestQueueFragmentStrengthScalesBlend(t *testing.T) {
	q := NewQueue(2.0)
	mustEnqueue(t, q, []float64{1}, 1.5)
	mustEnqueue(t, q, []float64{10}, 1.5)

	got, err := q.Peek()
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if !vectorsClose(got, []float64{1.5 + 5}, tolerance) {
		t.Fatalf("unexpected blend for fragment strength 2: %v", got)
	}
}

func TestQueuePeekDoesNotMutate(t *testing.T) {
	q := NewQueue(1.0)
	mustEnqueue(t, q, []float64{1, 2}, 0.75)
	mustEnqueue(t, q, []float64{3, 4}, 0.75)

	first, err := q.Peek()
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	total := q.TotalStrength()
	for i := 0; i < 5; i++ {
		got, err := q.Peek()
		if err != nil {
			t.Fatalf("peek %d failed: %v", i, err)
		}
		if !vectorsClose(got, first, 0) {
			t.Fatalf("peek %d returned %v, first peek returned %v", i, got, first)
		}
	}
	if q.Len() != 2 || q.TotalStrength() != total {
		t.Fatalf("peek mutated the queue: %v", q)
	}

	first[0] = 1000
	again, _ := q.Peek()
	if again[0] == 1000 {
		t.Fatalf("peek result aliases queue storage")
	}
}

func TestQueueDequeueRemovesExactlyOneEntry(t *testing.T) {
	q := NewQueue(1.0)
	a := []float64{1, 0, 0, 0}
	b := []float64{0, 1, 0, 0}
	c := []float64{0, 0, 1, 0}
	d := []float64{0, 0, 0, 1}
	mustEnqueue(t, q, a, 0.5)
	mustEnqueue(t, q, b, 0.25)
	mustEnqueue(t, q, c, 0.5)
	mustEnqueue(t, q, d, 1)

	got, err := q.DequeueStep()
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if !vectorsClose(got, []float64{0.5, 0.25, 0.25, 0}, tolerance) {
		t.Fatalf("dequeue returned %v", got)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 entries after dequeue, got %d", q.Len())
	}
	if q.TotalStrength() != 1.75 {
		t.Fatalf("expected total strength 1.75, got %v", q.TotalStrength())
	}
	if front, ok := q.At(0); !ok || front.Strength != 0.25 {
		t.Fatalf("expected b at the front, got %+v,%v", front, ok)
	}

	got, err = q.DequeueStep()
	if err != nil {
		t.Fatalf("second dequeue failed: %v", err)
	}
	if !vectorsClose(got, []float64{0, 0.25, 0.5, 0.25}, tolerance) {
		t.Fatalf("second dequeue returned %v", got)
	}
	if q.TotalStrength() != 1.5 {
		t.Fatalf("expected total strength 1.5, got %v", q.TotalStrength())
	}
}

func TestQueueDequeueUnderweightedTail(t *testing.T) {
	q := NewQueue(1.0)
	mustEnqueue(t, q, []float64{1}, 0.25)
	mustEnqueue(t, q, []float64{1}, 0.25)
	mustEnqueue(t, q, []float64{1}, 0.25)

	expected := []float64{0.75, 0.5, 0.25}
	for i, want := range expected {
		got, err := q.DequeueStep()
		if err != nil {
			t.Fatalf("dequeue %d failed: %v", i, err)
		}
		if math.Abs(got[0]-want) > tolerance {
			t.Fatalf("dequeue %d: got %v want %v", i, got[0], want)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("expected queue to be drained")
	}
	if q.TotalStrength() != 0 {
		t.Fatalf("drained queue should report zero strength, got %v", q.TotalStrength())
	}
}

func TestQueueStrengthConservation(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	q := NewQueue(1.0, WithSeed(42))

	for step := 0; step < 2000; step++ {
		if rng.IntN(3) == 0 {
			if _, err := q.DequeueStep(); err != nil && !errors.Is(err, ErrEmptyQueue) {
				t.Fatalf("step %d: unexpected dequeue error %v", step, err)
			}
		} else {
			mustEnqueue(t, q, []float64{rng.Float64(), rng.Float64()}, rng.Float64())
		}

		sum := 0.0
		for _, s := range q.Strengths() {
			sum += s
		}
		if math.Abs(q.TotalStrength()-sum) > 1e-9 {
			t.Fatalf("step %d: total strength %v drifted from sum %v", step, q.TotalStrength(), sum)
		}
	}
}

func TestQueueNonPositiveFragmentStrengthFallsBack(t *testing.T) {
	for _, fs := range []float64{0, -1, math.NaN()} {
		if got := NewQueue(fs).FragmentStrength(); got != DefaultFragmentStrength {
			t.Fatalf("NewQueue(%v) fragment strength = %v, want %v", fs, got, DefaultFragmentStrength)
		}
	}
}

func TestQueueCopyIsIndependent(t *testing.T) {
	q := NewQueue(1.0, WithSeed(3))
	mustEnqueue(t, q, []float64{1, 2}, 0.5)
	mustEnqueue(t, q, []float64{3, 4}, 0.75)

	dup := q.Copy()
	dup.AddNoise(1)
	mustEnqueue(t, dup, []float64{5, 6}, 1)

	vectors := q.Vectors()
	if !vectorsClose(vectors[0], []float64{1, 2}, 0) || !vectorsClose(vectors[1], []float64{3, 4}, 0) {
		t.Fatalf("mutating the copy changed the original: %v", vectors)
	}
	if q.Len() != 2 || q.TotalStrength() != 1.25 {
		t.Fatalf("original length or strength changed: %v", q)
	}
	if dup.FragmentStrength() != q.FragmentStrength() {
		t.Fatalf("copy lost fragment strength")
	}
}

func TestQueueReplace(t *testing.T) {
	src := NewQueue(2.0)
	mustEnqueue(t, src, []float64{1}, 0.5)

	dst := NewQueue(1.0)
	mustEnqueue(t, dst, []float64{7}, 1)
	mustEnqueue(t, dst, []float64{8}, 1)

	dst.Replace(src)
	if dst.Len() != 1 || dst.TotalStrength() != 0.5 || dst.FragmentStrength() != 2.0 {
		t.Fatalf("replace did not copy state: %v", dst)
	}

	src.ResetFeatures()
	if e, _ := dst.At(0); e.Vector[0] != 1 {
		t.Fatalf("replace aliased source storage")
	}
}

func TestQueueAccessorsReturnCopies(t *testing.T) {
	q := NewQueue(1.0)
	mustEnqueue(t, q, []float64{1, 2}, 0.5)

	q.Entries()[0].Vector[0] = 9
	q.Vectors()[0][1] = 9
	if e, ok := q.At(0); !ok || e.Vector[0] != 1 || e.Vector[1] != 2 {
		t.Fatalf("accessor results alias queue storage: %+v", e)
	}
	if _, ok := q.At(5); ok {
		t.Fatalf("At out of range should fail")
	}
}

func FuzzQueueOperations(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3})
	f.Add([]byte{255, 0, 0, 128})

	f.Fuzz(func(t *testing.T, data []byte) {
		q := NewQueue(1.0, WithSeed(9))
		length := 0
		for _, b := range data {
			if b%4 == 0 {
				before := q.TotalStrength()
				if length == 0 {
					if _, err := q.DequeueStep(); !errors.Is(err, ErrEmptyQueue) {
						t.Fatalf("expected ErrEmptyQueue, got %v", err)
					}
					continue
				}
				front, _ := q.At(0)
				if _, err := q.DequeueStep(); err != nil {
					t.Fatalf("dequeue failed: %v", err)
				}
				length--
				if length > 0 && math.Abs(before-front.Strength-q.TotalStrength()) > 1e-9 {
					t.Fatalf("dequeue removed %v, want %v", before-q.TotalStrength(), front.Strength)
				}
				continue
			}
			strength := float64(b) / 255
			if err := q.EnqueueStep([]float64{strength, 1 - strength}, strength); err != nil {
				t.Fatalf("enqueue failed: %v", err)
			}
			length++
		}
		if q.Len() != length {
			t.Fatalf("queue length %d, want %d", q.Len(), length)
		}
	})
}
