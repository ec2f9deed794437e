// Package telemetry keeps process-wide counters for evolution generations.
package telemetry

import (
	"context"
	"sync/atomic"
	"time"
)

// GenerationMetrics aggregates measurements of generation attempts.
type GenerationMetrics struct {
	totalDuration atomic.Int64
	attempts      atomic.Uint64
	failures      atomic.Uint64
	stages        atomic.Uint64
}

var defaultGenerationMetrics GenerationMetrics

// DefaultGenerationMetrics returns the global metrics.
func DefaultGenerationMetrics() *GenerationMetrics {
	return &defaultGenerationMetrics
}

// TraceGeneration records the start of a generation and returns a function
// that reports its duration and outcome.
func TraceGeneration(ctx context.Context) (context.Context, func(error)) {
	start := time.Now()
	defaultGenerationMetrics.attempts.Add(1)
	return ctx, func(err error) {
		elapsed := time.Since(start)
		defaultGenerationMetrics.totalDuration.Add(elapsed.Nanoseconds())
		if err != nil {
			defaultGenerationMetrics.failures.Add(1)
		}
	}
}

// RecordPublishedStages adds n to the number of stages published.
func (m *GenerationMetrics) RecordPublishedStages(n int) {
	if n > 0 {
		m.stages.Add(uint64(n))
	}
}

// PublishedStages returns the number of stages published since the last Reset.
func (m *GenerationMetrics) PublishedStages() uint64 {
	return m.stages.Load()
}

// Snapshot returns the collected values.
func (m *GenerationMetrics) Snapshot() (attempts uint64, failures uint64, average time.Duration) {
	attempts = m.attempts.Load()
	failures = m.failures.Load()
	total := m.totalDuration.Load()
	if attempts == 0 {
		return attempts, failures, 0
	}
	average = time.Duration(total / int64(attempts))
	return attempts, failures, average
}

// Reset zeroes every counter.
func (m *GenerationMetrics) Reset() {
	m.totalDuration.Store(0)
	m.attempts.Store(0)
	m.failures.Store(0)
	m.stages.Store(0)
}
