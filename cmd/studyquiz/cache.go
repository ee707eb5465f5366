package main

import (
	"context"
	"fmt"

	"studyquiz"

	"github.com/spf13/cobra"
)

func newCacheCmd(loadConfig configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the question cache (sqlite and redis backends)",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := studyquiz.OpenCache(cfg.Cache)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\nEntries: %d\n", stats.Backend, stats.Entries)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached question set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := studyquiz.OpenCache(cfg.Cache)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
