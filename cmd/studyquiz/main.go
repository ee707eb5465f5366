package main

import (
	"fmt"
	"os"

	"studyquiz"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "studyquiz",
		Short:         "Generate study questions and grade answers with a hosted language model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	loadConfig := func() (*studyquiz.Config, error) {
		cfg, err := studyquiz.Load(configPath)
		if err != nil {
			return nil, err
		}
		studyquiz.InitLogger(os.Stderr, cfg.Log.Level)
		if verbose {
			studyquiz.SetVerbose(true)
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newGenerateCmd(loadConfig),
		newEvaluateCmd(loadConfig),
		newCacheCmd(loadConfig),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type configLoader func() (*studyquiz.Config, error)
