package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/csvnum"
	"github.com/timzifer/fragmented_queue/internal/population"
)

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a summary of a queue file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.load(args[0])
			if err != nil {
				return err
			}
			if a.verbose {
				q.LogFeatureGroups()
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(args[0], q))
			return nil
		},
	}
}

func (a *app) regenCmd() *cobra.Command {
	var spacing int
	cmd := &cobra.Command{
		Use:   "regen <matrix.csv> <out>",
		Short: "Build a queue from a feature matrix, one feature every --spacing steps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("spacing") {
				spacing = a.cfg.Evolution.FeatureSpacing
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			matrix, err := csvnum.ReadMatrix(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			q := a.newQueue()
			if err := q.InitFromFeatureMatrix(matrix, spacing); err != nil {
				return err
			}
			return a.write(q, args[1])
		},
	}
	cmd.Flags().IntVar(&spacing, "spacing", 0, "steps between features (default from config)")
	return cmd
}

func (a *app) featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features <in> <matrix.csv>",
		Short: "Write the strongest vector of every feature group as a CSV row",
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

			if err := csvnum.WriteMatrix(f, q.FeatureMatrix()); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			return f.Close()
		},
	}
}

func (a *app) mutateCmd() *cobra.Command {
	var magnitude float64
	cmd := &cobra.Command{
		Use:   "mutate <in> <out>",
		Short: "Add Gaussian noise to every vector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("magnitude") {
				magnitude = a.cfg.Evolution.NoiseMagnitude
			}
			q, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := a.advance(cmd.Context(), population.Mutation(q, magnitude)); err != nil {
				return err
			}
			return a.write(q, args[1])
		},
	}
	cmd.Flags().Float64Var(&magnitude, "magnitude", 0, "noise magnitude (default from config)")
	return cmd
}

func (a *app) crossCmd() *cobra.Command {
	var swaps int
	cmd := &cobra.Command{
		Use:   "cross <a> <b> <outA> <outB>",
		Short: "Swap feature vectors between two aligned queues",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("swaps") {
				swaps = a.cfg.Evolution.CrossoverSwaps
			}
			qa, err := a.load(args[0])
			if err != nil {
				return err
			}
			qb, err := a.load(args[1])
			if err != nil {
				return err
			}
			stage := &population.CrossoverStage{A: qa, B: qb, Swaps: swaps}
			if err := a.advance(cmd.Context(), stage); err != nil {
				return err
			}
			if err := a.write(qa, args[2]); err != nil {
				return err
			}
			return a.write(qb, args[3])
		},
	}
	cmd.Flags().IntVar(&swaps, "swaps", 0, "number of swaps (default from config)")
	return cmd
}

func (a *app) interpolateCmd() *cobra.Command {
	var strength float64
	cmd := &cobra.Command{
		Use:   "interpolate <src> <target> <out>",
		Short: "Move the features of src toward those of target",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("strength") {
				strength = a.cfg.Evolution.InterpolationStrength
			}
			src, err := a.load(args[0])
			if err != nil {
				return err
			}
			target, err := a.load(args[1])
			if err != nil {
				return err
			}
			if err := a.advance(cmd.Context(), population.Interpolation(src, target, strength)); err != nil {
				return err
			}
			return a.write(src, args[2])
		},
	}
	cmd.Flags().Float64Var(&strength, "strength", 0, "interpolation strength in [0,1] (default from config)")
	return cmd
}

func (a *app) averageCmd() *cobra.Command {
	var weights string
	cmd := &cobra.Command{
		Use:   "average <out> <in>...",
		Short: "Write the weighted average of aligned queues",
		Long:  "Vectors are averaged position by position. Strengths are taken from the first input.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args[1:]
			w, err := parseWeights(weights, len(inputs))
			if err != nil {
				return err
			}
			sources := make([]*fq.Queue, 0, len(inputs))
			for _, path := range inputs {
				q, err := a.load(path)
				if err != nil {
					return err
				}
				sources = append(sources, q)
			}
			target := sources[0]
			if err := a.advance(cmd.Context(), population.Average(target, sources, w)); err != nil {
				return err
			}
			return a.write(target, args[0])
		},
	}
	cmd.Flags().StringVar(&weights, "weights", "", "comma separated weights, one per input (default equal)")
	return cmd
}

func (a *app) shuffleCmd() *cobra.Command {
	var vectorsOnly bool
	cmd := &cobra.Command{
		Use:   "shuffle <in> <out>",
		Short: "Shuffle whole entries, or only the vectors with --vectors-only",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := a.advance(cmd.Context(), population.Shuffle(q, vectorsOnly)); err != nil {
				return err
			}
			return a.write(q, args[1])
		},
	}
	cmd.Flags().BoolVar(&vectorsOnly, "vectors-only", false, "keep strengths in place and permute vectors")
	return cmd
}

func (a *app) rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <in> <out>",
		Short: "Move the front half of the queue to the back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := a.advance(cmd.Context(), population.Rotate(q)); err != nil {
				return err
			}
			return a.write(q, args[1])
		},
	}
}

func parseWeights(s string, n int) ([]float64, error) {
	if s == "" {
		w := make([]float64, n)
		for i := range w {
			w[i] = 1 / float64(n)
		}
		return w, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("got %d weights for %d inputs", len(parts), n)
	}
	w := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %d: %w", i, err)
		}
		w[i] = v
	}
	return w, nil
}
