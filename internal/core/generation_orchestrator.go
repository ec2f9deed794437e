// Package core runs evolution generations as all-or-nothing steps.
//
// A generation consists of stages. Every stage first prepares its work on
// private state and hands back publish/abort callbacks. Only when every stage
// prepared successfully does the orchestrator run the publish callbacks, in
// registration order, and advance the generation counter. If a stage fails
// or the context is cancelled, the abort callbacks of all stages prepared so
// far run in reverse order and nothing is published.
package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/timzifer/fragmented_queue/internal/telemetry"
)

// ErrNilStage is returned when registering a nil stage.
var ErrNilStage = errors.New("core: nil stage")

// Stage is one unit of work within a generation.
type Stage interface {
	Prepare(ctx context.Context) (publish func(), abort func(), err error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context) (func(), func(), error)

// Prepare calls f.
func (f StageFunc) Prepare(ctx context.Context) (func(), func(), error) {
	return f(ctx)
}

// GenerationOrchestrator serialises generations over a set of stages.
type GenerationOrchestrator struct {
	mu         sync.Mutex
	stages     []Stage
	generation atomic.Uint64
	logger     *zap.Logger
}

type generationObserverKey struct{}

// WithGenerationObserver returns a context that notifies observer about the
// final outcome of Advance. On success the observer runs immediately before
// the publish callbacks; on failure it runs before the error is returned.
func WithGenerationObserver(ctx context.Context, observer func(error)) context.Context {
	if observer == nil {
		return ctx
	}
	return context.WithValue(ctx, generationObserverKey{}, observer)
}

// NewGenerationOrchestrator creates an orchestrator with the given permanent
// stages.
func NewGenerationOrchestrator(stages ...Stage) *GenerationOrchestrator {
	copyStages := append([]Stage(nil), stages...)
	return &GenerationOrchestrator{stages: copyStages, logger: zap.NewNop()}
}

// WithLogger sets the logger and returns o.
func (o *GenerationOrchestrator) WithLogger(logger *zap.Logger) *GenerationOrchestrator {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// Advance runs one generation over the registered stages.
func (o *GenerationOrchestrator) Advance(ctx context.Context) error {
	return o.AdvanceWith(ctx)
}

// AdvanceWith runs one generation over the registered stages followed by
// extra, which take part in this generation only.
func (o *GenerationOrchestrator) AdvanceWith(ctx context.Context, extra ...Stage) (err error) {
	ctx, finish := telemetry.TraceGeneration(ctx)
	defer func() { finish(err) }()

	notify, _ := ctx.Value(generationObserverKey{}).(func(error))
	if notify == nil {
		notify = func(error) {}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	stages := append(append(make([]Stage, 0, len(o.stages)+len(extra)), o.stages...), extra...)
	batch, err := prepare(ctx, stages)
	if err != nil {
		batch.rollback()
		o.logger.Warn("generation aborted",
			zap.Uint64("generation", o.generation.Load()+1),
			zap.Int("prepared", len(batch)),
			zap.Error(err))
		notify(err)
		return err
	}

	notify(nil)
	batch.publish()

	next := o.generation.Add(1)
	telemetry.DefaultGenerationMetrics().RecordPublishedStages(len(batch))
	o.logger.Debug("generation published",
		zap.Uint64("generation", next),
		zap.Int("stages", len(batch)))
	return nil
}

type preparedStage struct {
	publish, abort func()
}

// prepared holds the callbacks of the stages that prepared successfully.
type prepared []preparedStage

// prepare runs Prepare on stages in order and stops at the first failure.
// The context is checked before every stage and once more after the last, so
// a cancellation observed late still fails the generation. The returned batch
// holds every stage prepared before the failure.
func prepare(ctx context.Context, stages []Stage) (prepared, error) {
	batch := make(prepared, 0, len(stages))
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if stage == nil {
			return batch, ErrNilStage
		}
		publish, abort, err := stage.Prepare(ctx)
		if err != nil {
			return batch, err
		}
		batch = append(batch, preparedStage{publish: publish, abort: abort})
	}
	return batch, ctx.Err()
}

func (b prepared) publish() {
	for _, s := range b {
		if s.publish != nil {
			s.publish()
		}
	}
}

func (b prepared) rollback() {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i].abort != nil {
			b[i].abort()
		}
	}
}

// Generation returns the number of generations published so far.
func (o *GenerationOrchestrator) Generation() uint64 {
	return o.generation.Load()
}

// RegisterStage appends a permanent stage at runtime.
func (o *GenerationOrchestrator) RegisterStage(stage Stage) error {
	if stage == nil {
		return ErrNilStage
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
	return nil
}
