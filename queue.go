package fragmentedqueue

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/timzifer/fragmented_queue/internal/vecmath"
)

// Entry pairs a queued vector with the strength it contributes to a read.
type Entry struct {
	Vector   []float64
	Strength float64
}

func (e Entry) clone() Entry {
	return Entry{Vector: vecmath.Clone(e.Vector), Strength: e.Strength}
}

// Queue is a fragmented strength-gated queue. A read blends vectors from the
// front until their strengths add up to the fragment strength; a dequeue
// then removes only the first entry.
//
// Queue is not safe for concurrent use. Callers that share a queue between
// goroutines must serialise every call.
type Queue struct {
	entries          []Entry
	fragmentStrength float64
	totalStrength    float64
	rng              *rand.Rand
	logger           *zap.Logger
}

// NewQueue creates an empty queue that consumes fragmentStrength worth of
// strength per read. A non-positive fragmentStrength selects
// DefaultFragmentStrength.
func NewQueue(fragmentStrength float64, opts ...Option) *Queue {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !(fragmentStrength > 0) {
		fragmentStrength = DefaultFragmentStrength
	}
	return &Queue{
		fragmentStrength: fragmentStrength,
		rng:              o.rng,
		logger:           o.logger,
	}
}

// Len returns the number of entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// IsEmpty reports whether the queue holds no entries.
func (q *Queue) IsEmpty() bool {
	return len(q.entries) == 0
}

// Dimension returns the vector length shared by all entries, or 0 for an
// empty queue.
func (q *Queue) Dimension() int {
	if len(q.entries) == 0 {
		return 0
	}
	return len(q.entries[0].Vector)
}

// FragmentStrength returns the amount of strength one read consumes.
func (q *Queue) FragmentStrength() float64 {
	return q.fragmentStrength
}

// TotalStrength returns the sum of all strengths currently held.
func (q *Queue) TotalStrength() float64 {
	return q.totalStrength
}

// IsFull reports whether the queue holds at least one fragment worth of
// strength. Reads on a queue that is not full return a partial blend.
func (q *Queue) IsFull() bool {
	return q.totalStrength >= q.fragmentStrength
}

// HasFullBuffer is an alias for IsFull.
func (q *Queue) HasFullBuffer() bool {
	return q.IsFull()
}

// EnqueueStep appends a copy of vector with the given strength. There is no
// capacity limit. The only failure is a vector whose length differs from the
// vectors already queued.
func (q *Queue) EnqueueStep(vector []float64, strength float64) error {
	if len(q.entries) > 0 && len(vector) != q.Dimension() {
		return fmt.Errorf("%w: enqueue of %d-dimensional vector into %d-dimensional queue", ErrDimensionMismatch, len(vector), q.Dimension())
	}
	q.entries = append(q.entries, Entry{Vector: vecmath.Clone(vector), Strength: strength})
	q.totalStrength += strength
	return nil
}

// Peek returns the strength-weighted blend of the entries at the front of
// the queue without modifying it. Entries contribute their full strength
// until the fragment strength would be exceeded; the entry that crosses the
// threshold contributes only the remainder. If the queue holds less than a
// fragment, the blend uses every entry and weighs less than the fragment.
func (q *Queue) Peek() ([]float64, error) {
	if len(q.entries) == 0 {
		return nil, ErrEmptyQueue
	}

	out := vecmath.Zeros(q.Dimension())
	strengthSum := 0.0
	for _, e := range q.entries {
		if strengthSum >= q.fragmentStrength {
			break
		}
		remaining := q.fragmentStrength - strengthSum
		if e.Strength <= remaining {
			vecmath.AddScaled(out, e.Vector, e.Strength)
			strengthSum += e.Strength
		} else {
			vecmath.AddScaled(out, e.Vector, remaining)
			strengthSum = q.fragmentStrength
		}
	}
	return out, nil
}

// DequeueStep returns the same blend as Peek and then removes exactly the
// first entry, subtracting that entry's full strength. Strength read past the
// first entry stays queued.
func (q *Queue) DequeueStep() ([]float64, error) {
	result, err := q.Peek()
	if err != nil {
		return nil, err
	}

	front := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	q.totalStrength -= front.Strength
	if len(q.entries) == 0 {
		q.entries = nil
		q.totalStrength = 0
	}
	return result, nil
}

// At returns a copy of the entry at index i.
func (q *Queue) At(i int) (Entry, bool) {
	if i < 0 || i >= len(q.entries) {
		return Entry{}, false
	}
	return q.entries[i].clone(), true
}

// Entries returns a deep copy of all entries in queue order.
func (q *Queue) Entries() []Entry {
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]Entry, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.clone()
	}
	return out
}

// Strengths returns the strengths in queue order.
func (q *Queue) Strengths() []float64 {
	out := make([]float64, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.Strength
	}
	return out
}

// Vectors returns copies of the vectors in queue order.
func (q *Queue) Vectors() [][]float64 {
	out := make([][]float64, len(q.entries))
	for i, e := range q.entries {
		out[i] = vecmath.Clone(e.Vector)
	}
	return out
}

// Copy returns a deep copy of q. The copy shares q's random generator and
// logger but none of its vector storage.
func (q *Queue) Copy() *Queue {
	return &Queue{
		entries:          q.Entries(),
		fragmentStrength: q.fragmentStrength,
		totalStrength:    q.totalStrength,
		rng:              q.rng,
		logger:           q.logger,
	}
}

// Replace overwrites q's entries, fragment strength and total strength with a
// deep copy of src. The generator and logger of q are kept.
func (q *Queue) Replace(src *Queue) {
	if src == q {
		return
	}
	q.entries = src.Entries()
	q.fragmentStrength = src.fragmentStrength
	q.totalStrength = src.totalStrength
}

func (q *Queue) String() string {
	return fmt.Sprintf("fragmentedqueue(len=%d dim=%d total=%g fragment=%g)", len(q.entries), q.Dimension(), q.totalStrength, q.fragmentStrength)
}
