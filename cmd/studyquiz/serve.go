package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"studyquiz"

	"github.com/spf13/cobra"
)

func newServeCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			tutor, err := studyquiz.NewTutorFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to start tutor: %w", err)
			}
			defer func() { _ = tutor.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return studyquiz.NewServer(cfg, tutor).ListenAndServe(ctx)
		},
	}
}
