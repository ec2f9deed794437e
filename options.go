package fragmentedqueue

import (
	"math/rand/v2"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultFragmentStrength is used when NewQueue receives a non-positive
// fragment strength.
const DefaultFragmentStrength = 1.0

type options struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// Option configures a Queue at construction time.
type Option func(*options)

// WithRand injects the generator used by Crossover, AddNoise, ShuffleVectors
// and ShuffleQueue. Copies of the queue share the generator.
func WithRand(rng *rand.Rand) Option {
	return func(opts *options) {
		if rng != nil {
			opts.rng = rng
		}
	}
}

// WithSeed installs a PCG generator seeded with seed. Every queue built with
// the same option value gets its own stream, numbered in construction order,
// so a population built from one WithSeed option is reproducible without its
// members sharing noise.
func WithSeed(seed uint64) Option {
	var built atomic.Uint64
	return func(opts *options) {
		stream := built.Add(1) - 1
		opts.rng = rand.New(rand.NewPCG(seed, (seed^0x9e3779b97f4a7c15)+stream))
	}
}

// WithLogger sets the logger used for feature diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

func defaultOptions() options {
	return options{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: zap.NewNop(),
	}
}
