package population

import (
	"context"
	"sync"

	fq "github.com/timzifer/fragmented_queue"
)

// DropPolicy selects which offspring a full nursery discards.
type DropPolicy int

const (
	// DropOldest discards the longest-waiting offspring first.
	DropOldest DropPolicy = iota
	// DropNewest discards the most recently submitted offspring first.
	DropNewest
)

// NurseryOptions bounds the pending segment. MaxPending <= 0 means unbounded.
type NurseryOptions struct {
	MaxPending int
	DropPolicy DropPolicy
}

// Nursery holds offspring that join a population only when a generation
// publishes. It is a core.Stage: Prepare detaches the pending segment,
// publish appends it to the population and abort puts it back in front of
// anything submitted meanwhile.
type Nursery struct {
	mu      sync.Mutex
	pop     *Population
	pending []*fq.Queue
	opts    NurseryOptions
	dropped int
}

// NewNursery returns a nursery feeding pop.
func NewNursery(pop *Population, opts NurseryOptions) *Nursery {
	return &Nursery{pop: pop, opts: opts}
}

// Submit queues q for admission. It reports false when the bound made the
// nursery discard q itself.
func (n *Nursery) Submit(q *fq.Queue) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, q)
	return n.trimLocked(q)
}

// Pending returns the number of offspring waiting for the next generation.
func (n *Nursery) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Dropped returns how many offspring the bound has discarded so far.
func (n *Nursery) Dropped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

// Prepare implements core.Stage.
func (n *Nursery) Prepare(ctx context.Context) (func(), func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	n.mu.Lock()
	staged := n.pending
	n.pending = nil
	n.mu.Unlock()

	if len(staged) == 0 {
		return func() {}, nil, nil
	}

	publish := func() {
		for _, q := range staged {
			n.pop.Add(q)
		}
	}
	abort := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.pending = append(staged, n.pending...)
		n.trimLocked(nil)
	}
	return publish, abort, nil
}

// trimLocked enforces MaxPending and reports whether keep survived.
func (n *Nursery) trimLocked(keep *fq.Queue) bool {
	survived := true
	for n.opts.MaxPending > 0 && len(n.pending) > n.opts.MaxPending {
		var victim *fq.Queue
		if n.opts.DropPolicy == DropNewest {
			victim = n.pending[len(n.pending)-1]
			n.pending = n.pending[:len(n.pending)-1]
		} else {
			victim = n.pending[0]
			n.pending = n.pending[1:]
		}
		if victim == keep {
			survived = false
		}
		n.dropped++
	}
	return survived
}
