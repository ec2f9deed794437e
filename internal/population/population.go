// Package population manages a set of uuid-identified queues and the
// generation stages that evolve them.
package population

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/core"
)

// Member is one genome of the population.
type Member struct {
	ID    uuid.UUID
	Queue *fq.Queue
}

// Population is an ordered set of members. Membership changes are guarded by
// a mutex, the queues themselves are owned by whoever runs the generation.
type Population struct {
	Name string

	mu      sync.RWMutex
	members []*Member
	index   map[uuid.UUID]*Member
}

// New returns an empty population.
func New(name string) *Population {
	return &Population{Name: name, index: make(map[uuid.UUID]*Member)}
}

// Add appends q under a fresh random id.
func (p *Population) Add(q *fq.Queue) *Member {
	m, _ := p.AddWithID(uuid.New(), q)
	return m
}

// AddWithID appends q under id. It fails when id is already taken.
func (p *Population) AddWithID(id uuid.UUID, q *fq.Queue) (*Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.index[id]; dup {
		return nil, fmt.Errorf("population: duplicate member %s", id)
	}
	m := &Member{ID: id, Queue: q}
	p.members = append(p.members, m)
	p.index[id] = m
	return m, nil
}

// Members returns the members in insertion order.
func (p *Population) Members() []*Member {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Member(nil), p.members...)
}

// Len returns the number of members.
func (p *Population) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// EvolveParams controls one call to Evolve.
type EvolveParams struct {
	CrossoverSwaps int
	NoiseMagnitude float64
}

// Evolve advances one generation. Members are paired in order; each pair is
// crossed over with noise applied to both children. An unpaired last member
// is only mutated. Either every member is updated or none is.
func (p *Population) Evolve(ctx context.Context, o *core.GenerationOrchestrator, params EvolveParams, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	members := p.Members()
	stages := make([]core.Stage, 0, (len(members)+1)/2)
	for i := 0; i+1 < len(members); i += 2 {
		stages = append(stages, &CrossoverStage{
			A:              members[i].Queue,
			B:              members[i+1].Queue,
			Swaps:          params.CrossoverSwaps,
			NoiseMagnitude: params.NoiseMagnitude,
		})
	}
	if len(members)%2 == 1 {
		stages = append(stages, Mutation(members[len(members)-1].Queue, params.NoiseMagnitude))
	}

	if err := o.AdvanceWith(ctx, stages...); err != nil {
		return fmt.Errorf("evolve %s: %w", p.Name, err)
	}
	logger.Info("population evolved",
		zap.String("population", p.Name),
		zap.Int("members", len(members)),
		zap.Uint64("generation", o.Generation()))
	return nil
}
