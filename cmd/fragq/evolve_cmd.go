package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timzifer/fragmented_queue/internal/core"
	"github.com/timzifer/fragmented_queue/internal/population"
	"github.com/timzifer/fragmented_queue/internal/telemetry"
)

func (a *app) evolveCmd() *cobra.Command {
	var (
		generations int
		offspring   int
		swaps       int
		magnitude   float64
		out         string
	)
	cmd := &cobra.Command{
		Use:   "evolve <dir>",
		Short: "Evolve the queues of a directory for several generations",
		Long: `evolve loads every queue file of <dir> as one population and runs
--generations generations over it. Each generation pairs members for crossover
with noise, admits copies of the first --offspring members through a bounded
nursery and archives the whole population. The result is written back to <dir>
or to --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if generations < 1 {
				return fmt.Errorf("--generations must be at least 1, got %d", generations)
			}
			if !cmd.Flags().Changed("swaps") {
				swaps = a.cfg.Evolution.CrossoverSwaps
			}
			if !cmd.Flags().Changed("magnitude") {
				magnitude = a.cfg.Evolution.NoiseMagnitude
			}
			if out == "" {
				out = args[0]
			}
			return a.evolve(cmd, args[0], out, generations, offspring,
				population.EvolveParams{CrossoverSwaps: swaps, NoiseMagnitude: magnitude})
		},
	}
	cmd.Flags().IntVar(&generations, "generations", 1, "number of generations to run")
	cmd.Flags().IntVar(&offspring, "offspring", 0, "members copied into the nursery per generation")
	cmd.Flags().IntVar(&swaps, "swaps", 0, "crossover swaps per pair (default from config)")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 0, "noise magnitude (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default <dir>)")
	return cmd
}

func (a *app) evolve(cmd *cobra.Command, dir, out string, generations, offspring int, params population.EvolveParams) error {
	ctx := cmd.Context()
	metrics := telemetry.DefaultGenerationMetrics()
	metrics.Reset()

	pop, err := population.LoadDir(ctx, dir, a.cfg.Queue.FragmentStrength, a.queueOptions()...)
	if err != nil {
		return err
	}
	if pop.Len() == 0 {
		return fmt.Errorf("no queue files in %s", dir)
	}

	archive, err := a.openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()
	a.logger.Info("population loaded",
		zap.String("population", pop.Name),
		zap.Int("members", pop.Len()),
		zap.String("archive", archive.Path()))

	nursery := population.NewNursery(pop, population.NurseryOptions{
		MaxPending: offspring,
		DropPolicy: population.DropOldest,
	})
	o := core.NewGenerationOrchestrator().WithLogger(a.logger)
	if err := o.RegisterStage(nursery); err != nil {
		return err
	}

	for i := 0; i < generations; i++ {
		a.spawn(pop, nursery, offspring)

		genCtx := core.WithGenerationObserver(ctx, func(err error) {
			if err != nil {
				a.logger.Warn("generation failed", zap.Int("attempt", i+1), zap.Error(err))
				return
			}
			a.logger.Debug("generation accepted", zap.Int("attempt", i+1))
		})
		if err := pop.Evolve(genCtx, o, params, a.logger); err != nil {
			return err
		}
		if _, err := archive.PutPopulation(ctx, pop, int(o.Generation())); err != nil {
			return err
		}
	}

	if err := population.SaveDir(ctx, pop, out); err != nil {
		return err
	}
	a.report(cmd, pop, o, nursery)
	return nil
}

// spawn submits copies of the first n members. Each copy gets its own
// generator so offspring do not replay the noise of their parent.
func (a *app) spawn(pop *population.Population, nursery *population.Nursery, n int) {
	for i, m := range pop.Members() {
		if i >= n {
			break
		}
		child := a.newQueue()
		child.Replace(m.Queue)
		nursery.Submit(child)
	}
	a.logger.Debug("offspring submitted", zap.Int("pending", nursery.Pending()))
}

func (a *app) report(cmd *cobra.Command, pop *population.Population, o *core.GenerationOrchestrator, nursery *population.Nursery) {
	metrics := telemetry.DefaultGenerationMetrics()
	attempts, failures, avg := metrics.Snapshot()
	a.logger.Info("evolution finished",
		zap.String("population", pop.Name),
		zap.Uint64("generation", o.Generation()),
		zap.Int("members", pop.Len()),
		zap.Uint64("attempts", attempts),
		zap.Uint64("failures", failures),
		zap.Duration("avg_generation", avg),
		zap.Uint64("published_stages", metrics.PublishedStages()),
		zap.Int("dropped_offspring", nursery.Dropped()))

	fmt.Fprint(cmd.OutOrStdout(), renderEvolution(pop.Name, o.Generation(), pop.Len(), attempts, failures, nursery.Dropped()))
}
