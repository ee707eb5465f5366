package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"studyquiz"

	"github.com/spf13/cobra"
)

func newGenerateCmd(loadConfig configLoader) *cobra.Command {
	var (
		inputFile string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions for study material read from a file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			text, err := readInput(cmd.InOrStdin(), inputFile)
			if err != nil {
				return err
			}

			tutor, err := studyquiz.NewTutorFromConfig(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = tutor.Close() }()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			doc, _, err := tutor.GenerateQuestions(ctx, text)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "study material file (default: stdin)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "model call timeout")
	return cmd
}

func newEvaluateCmd(loadConfig configLoader) *cobra.Command {
	var (
		question    string
		answer      string
		contextFile string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade an answer to a question about study material",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			contextText, err := readInput(cmd.InOrStdin(), contextFile)
			if err != nil {
				return err
			}

			tutor, err := studyquiz.NewTutorFromConfig(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = tutor.Close() }()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			doc, err := tutor.EvaluateAnswer(ctx, studyquiz.EvaluationRequest{
				Question:    question,
				Answer:      answer,
				ContextText: contextText,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "question text (required)")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "student answer (required)")
	cmd.Flags().StringVarP(&contextFile, "context-file", "f", "", "study material file (default: stdin)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "model call timeout")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, doc json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, doc, "", "  "); err != nil {
		return err
	}
	out.WriteString("\n")
	_, err := out.WriteTo(w)
	return err
}
