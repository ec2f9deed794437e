// Package stream drives a fragmented queue from a step sequence: one encoded
// step goes in per time unit and a blended vector goes out to the decoder
// whenever the queue holds a full fragment.
package stream

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	fq "github.com/timzifer/fragmented_queue"
)

// ErrExhausted is returned by Retrieve once a sequence has no more steps.
var ErrExhausted = errors.New("stream: sequence exhausted")

// Step is one time unit of input.
type Step struct {
	Index  int
	Values []float64
}

// Sequence yields steps in order.
type Sequence interface {
	Retrieve() (Step, error)
	HasNext() bool
	EntrySize() int
}

// Encoder turns a step into a latent vector and its strength.
type Encoder interface {
	Encode(step Step) ([]float64, float64, error)
}

// Decoder consumes blended vectors read from the queue.
type Decoder interface {
	Decode(vector []float64) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(Step) ([]float64, float64, error)

// Encode calls f.
func (f EncoderFunc) Encode(step Step) ([]float64, float64, error) { return f(step) }

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func([]float64) error

// Decode calls f.
func (f DecoderFunc) Decode(vector []float64) error { return f(vector) }

// SliceSequence replays a fixed list of value rows.
type SliceSequence struct {
	rows [][]float64
	pos  int
}

// NewSliceSequence returns a sequence over rows. Rows are not copied.
func NewSliceSequence(rows [][]float64) *SliceSequence {
	return &SliceSequence{rows: rows}
}

// Retrieve implements Sequence.
func (s *SliceSequence) Retrieve() (Step, error) {
	if s.pos >= len(s.rows) {
		return Step{}, ErrExhausted
	}
	step := Step{Index: s.pos, Values: s.rows[s.pos]}
	s.pos++
	return step, nil
}

// HasNext implements Sequence.
func (s *SliceSequence) HasNext() bool { return s.pos < len(s.rows) }

// EntrySize implements Sequence. It is the width of the first row.
func (s *SliceSequence) EntrySize() int {
	if len(s.rows) == 0 {
		return 0
	}
	return len(s.rows[0])
}

// Driver steps Queue once per element of Sequence.
type Driver struct {
	Sequence Sequence
	Queue    *fq.Queue
	Encoder  Encoder
	Decoder  Decoder
	Logger   *zap.Logger
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Run enqueues every step and forwards a blend to the decoder whenever the
// queue is full. After the sequence ends the remaining entries are drained,
// so a run that starts on an empty queue decodes one vector per step. The
// context is checked between steps. Run returns the number of decoded vectors.
func (d *Driver) Run(ctx context.Context) (int, error) {
	if d.Decoder == nil {
		return 0, errors.New("stream: driver has no decoder")
	}
	decoded := 0
	err := d.feed(ctx, func() error {
		if !d.Queue.IsFull() {
			return nil
		}
		if err := d.emit(); err != nil {
			return err
		}
		decoded++
		return nil
	})
	if err != nil {
		return decoded, err
	}

	for !d.Queue.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return decoded, err
		}
		if err := d.emit(); err != nil {
			return decoded, err
		}
		decoded++
	}
	d.logger().Debug("stream drained", zap.Int("decoded", decoded))
	return decoded, nil
}

// Encode enqueues every step without decoding, leaving the latent sequence in
// the queue. It returns the number of enqueued steps.
func (d *Driver) Encode(ctx context.Context) (int, error) {
	n := 0
	err := d.feed(ctx, func() error {
		n++
		return nil
	})
	d.logger().Debug("stream encoded", zap.Int("steps", n), zap.Float64("total_strength", d.Queue.TotalStrength()))
	return n, err
}

func (d *Driver) feed(ctx context.Context, afterEnqueue func() error) error {
	if d.Sequence == nil || d.Queue == nil || d.Encoder == nil {
		return errors.New("stream: driver is missing a sequence, queue or encoder")
	}
	for d.Sequence.HasNext() {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, err := d.Sequence.Retrieve()
		if err != nil {
			return fmt.Errorf("retrieve: %w", err)
		}
		vector, strength, err := d.Encoder.Encode(step)
		if err != nil {
			return fmt.Errorf("encode step %d: %w", step.Index, err)
		}
		if err := d.Queue.EnqueueStep(vector, strength); err != nil {
			return fmt.Errorf("enqueue step %d: %w", step.Index, err)
		}
		if err := afterEnqueue(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) emit() error {
	out, err := d.Queue.DequeueStep()
	if err != nil {
		return err
	}
	if err := d.Decoder.Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
