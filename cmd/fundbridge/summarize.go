package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/staging"
	"fundbridge-gpt/internal/tokens"
)

func summarizeCmd(a *app) *cobra.Command {
	var (
		model   string
		prompt  string
		stream  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Summarize a .txt, .pdf, .csv or .md document",
		Long: `Summarize a document with the selected model.

Prompts: short (default), earnings

Examples:
  fundbridge summarize report.pdf
  fundbridge summarize call.txt --prompt earnings --model gpt-4 --stream`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()

			summarizer := service.NewSummarizeService(
				service.NewValidator(a.llm, a.cfg.LivenessTimeout),
				staging.NewStager(a.cfg.UploadDir),
				tokens.NewBudget(a.counter),
				a.llm,
			)

			var sink func(chunk string) error
			if stream {
				sink = func(chunk string) error {
					_, err := io.WriteString(a.out, chunk)
					return err
				}
			}

			resp, err := summarizer.Summarize(cmd.Context(), service.SummarizeRequest{
				Upload: &service.Upload{Name: filepath.Base(args[0]), Body: f},
				Model:  model,
				Prompt: prompt,
				APIKey: a.apiKey,
			}, &progress{w: a.errOut, verbose: verbose}, sink)
			if err != nil {
				return err
			}

			if stream {
				fmt.Fprintln(a.out)
			} else {
				fmt.Fprintln(a.out, resp.Summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", a.cfg.DefaultModel, "Model ID (see 'fundbridge models')")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "short", "Summary prompt: short or earnings")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print the summary as it is generated")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each processing stage")

	return cmd
}
