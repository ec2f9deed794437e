package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the fragq config file",
	}
	cmd.AddCommand(a.configInitCmd())
	return cmd
}

func (a *app) configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configPath); err == nil {
				return fmt.Errorf("config %s already exists", a.configPath)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := a.cfg.Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.configPath)
			return nil
		},
	}
}
