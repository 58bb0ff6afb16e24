package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/prompts"
)

func modelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the selectable models and their token budgets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range catalog.All() {
				marker := "  "
				if m.ID == a.cfg.DefaultModel {
					marker = color.GreenString("* ")
				}
				fmt.Fprintf(a.out, "%s%s %s\n", marker, color.CyanString(m.ID), color.HiBlackString("(%d tokens)", m.MaxTokens))
				fmt.Fprintf(a.out, "    %s\n", m.Description)
			}
		},
	}
}

func promptsCmd(a *app) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List the summary prompts",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range prompts.All() {
				fmt.Fprintf(a.out, "%s  %s\n", color.CyanString("%-9s", t.Key), t.Title)
				fmt.Fprintf(a.out, "           %s\n", t.Description)
				if show {
					fmt.Fprintf(a.out, "\n%s\n\n", t.Text)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the full prompt text")

	return cmd
}
