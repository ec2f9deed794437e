package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timzifer/fragmented_queue/internal/csvnum"
	"github.com/timzifer/fragmented_queue/internal/stream"
)

func (a *app) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <steps.csv> <out>",
		Short: "Build a queue from CSV steps whose last column is the strength",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := csvnum.ReadMatrix(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			seq := stream.NewSliceSequence(rows)
			if seq.EntrySize() < 2 {
				return fmt.Errorf("%s: each step needs at least one value and a strength", args[0])
			}

			q := a.newQueue()
			d := &stream.Driver{
				Sequence: seq,
				Queue:    q,
				Encoder: stream.EncoderFunc(func(step stream.Step) ([]float64, float64, error) {
					last := len(step.Values) - 1
					return step.Values[:last], step.Values[last], nil
				}),
				Logger: a.logger,
			}
			if _, err := d.Encode(cmd.Context()); err != nil {
				return err
			}
			return a.write(q, args[1])
		},
	}
}

func (a *app) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <in> <out.csv>",
		Short: "Drain a queue one step at a time and write every blend as a CSV row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.load(args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			d := &stream.Driver{
				Sequence: stream.NewSliceSequence(nil),
				Queue:    q,
				Encoder: stream.EncoderFunc(func(step stream.Step) ([]float64, float64, error) {
					return nil, 0, fmt.Errorf("unexpected step %d", step.Index)
				}),
				Decoder: stream.DecoderFunc(func(v []float64) error {
					return csvnum.WriteVector(f, v)
				}),
				Logger: a.logger,
			}
			n, err := d.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("queue decoded", zap.String("path", args[1]), zap.Int("vectors", n))
			return f.Close()
		},
	}
}
