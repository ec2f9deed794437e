package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timzifer/fragmented_queue/internal/population"
	"github.com/timzifer/fragmented_queue/internal/store"
)

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store and retrieve queues in the SQLite archive",
	}
	cmd.AddCommand(a.archivePutCmd(), a.archiveListCmd(), a.archiveGetCmd(), a.archivePopulationsCmd())
	return cmd
}

func (a *app) openArchive() (*store.Archive, error) {
	return store.Open(a.cfg.Archive.Path)
}

func (a *app) archivePutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <population> <generation> <file>...",
		Short: "Archive queue files as one generation of a population",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			generation, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid generation %q: %w", args[1], err)
			}

			pop := population.New(args[0])
			for _, path := range args[2:] {
				q, err := a.load(path)
				if err != nil {
					return err
				}
				pop.Add(q)
			}

			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			ids, err := archive.PutPopulation(cmd.Context(), pop, generation)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func (a *app) archiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <population>",
		Short: "List archived queues of a population",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			records, err := archive.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRecords(args[0], records))
			return nil
		},
	}
}

func (a *app) archiveGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id> <out>",
		Short: "Write an archived queue to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			q, err := archive.Get(cmd.Context(), id, a.queueOptions()...)
			if err != nil {
				return err
			}
			return a.write(q, args[1])
		},
	}
}

func (a *app) archivePopulationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "populations",
		Short: "List the populations stored in the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			names, err := archive.Populations(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Debug("archive populations", zap.String("archive", archive.Path()), zap.Int("count", len(names)))
			fmt.Fprint(cmd.OutOrStdout(), renderPopulations(names))
			return nil
		},
	}
}
