// Package main provides the FundBridge-GPT operator CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fundbridge-gpt/internal/config"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/rag"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/tokens"
)

var version = "0.1.0"

// chatBackend is satisfied by both provider clients.
type chatBackend interface {
	service.LLMClient
	rag.ChatClient
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	llm     chatBackend
	counter tokens.Counter
	out     io.Writer
	errOut  io.Writer

	// apiKey overrides the configured credential when set.
	apiKey string
}

func newApp(cfg *config.Config, out, errOut io.Writer) *app {
	var client chatBackend
	if cfg.LLMBackend == config.BackendOpenAI {
		client = llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.DefaultModel)
	} else {
		client = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.DefaultModel)
	}
	return &app{
		cfg:     cfg,
		llm:     client,
		counter: tokens.NewTiktokenCounter(),
		out:     out,
		errOut:  errOut,
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fundbridge",
		Short: "FundBridge-GPT document tools from the terminal",
		Long: `FundBridge-GPT: summarize documents and chat with hosted models.

The credential comes from --api-key, LLM_API_KEY or OPENAI_API_KEY.
Use 'fundbridge models' to see which models are available.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key for this run (overrides the environment)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tools", Title: "Tools:"},
		&cobra.Group{ID: "info", Title: "Information:"},
	)

	for _, cmd := range []*cobra.Command{summarizeCmd(a), chatCmd(a)} {
		cmd.GroupID = "tools"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{modelsCmd(a), promptsCmd(a), checkCmd(a)} {
		cmd.GroupID = "info"
		rootCmd.AddCommand(cmd)
	}

	return rootCmd
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Logs go to stderr so command output stays clean.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(cfg, os.Stdout, os.Stderr)
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
