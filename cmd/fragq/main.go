// Command fragq inspects, evolves and archives fragmented queue files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/config"
	"github.com/timzifer/fragmented_queue/internal/core"
	"github.com/timzifer/fragmented_queue/internal/logging"
)

type app struct {
	// Global flags
	configPath string
	verbose    bool
	seed       uint64

	cfg     *config.Config
	logger  *zap.Logger
	seedOpt fq.Option
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "fragq",
		Short: "Inspect, evolve and archive fragmented queue files",
		Long: `fragq works on queue files in the labelled (strengths)/(vectors) text format.

Genome operators run as a single generation: every input is staged first and
the outputs are only written once all of them succeeded.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Evolution.Seed = a.seed
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			a.cfg = cfg
			if cfg.Evolution.Seed != 0 {
				a.seedOpt = fq.WithSeed(cfg.Evolution.Seed)
			}

			a.logger, err = logging.New(cfg.Logging, a.verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "fragq.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().Uint64Var(&a.seed, "seed", 0, "random seed for genome operators (0 = random)")

	root.AddCommand(
		a.inspectCmd(),
		a.regenCmd(),
		a.featuresCmd(),
		a.mutateCmd(),
		a.crossCmd(),
		a.interpolateCmd(),
		a.averageCmd(),
		a.shuffleCmd(),
		a.rotateCmd(),
		a.evolveCmd(),
		a.encodeCmd(),
		a.decodeCmd(),
		a.archiveCmd(),
		a.configCmd(),
	)
	return root
}

// queueOptions returns the options for every queue the command creates. A
// seeded run shares one seed option, so queues draw successive streams in the
// order they are built.
func (a *app) queueOptions() []fq.Option {
	opts := []fq.Option{fq.WithLogger(a.logger)}
	if a.seedOpt != nil {
		opts = append(opts, a.seedOpt)
	}
	return opts
}

func (a *app) newQueue() *fq.Queue {
	return fq.NewQueue(a.cfg.Queue.FragmentStrength, a.queueOptions()...)
}

func (a *app) load(path string) (*fq.Queue, error) {
	q := a.newQueue()
	if err := q.InitFromFile(path); err != nil {
		return nil, err
	}
	a.logger.Debug("queue loaded", zap.String("path", path), zap.Int("entries", q.Len()))
	return q, nil
}

// advance runs stages as one generation.
func (a *app) advance(ctx context.Context, stages ...core.Stage) error {
	return core.NewGenerationOrchestrator(stages...).WithLogger(a.logger).Advance(ctx)
}

func (a *app) write(q *fq.Queue, path string) error {
	if err := q.WriteToFile(path); err != nil {
		return err
	}
	a.logger.Info("queue written", zap.String("path", path), zap.Int("entries", q.Len()))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
