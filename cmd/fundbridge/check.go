package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fundbridge-gpt/internal/service"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the provider is reachable and accepts the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			validator := service.NewValidator(a.llm, a.cfg.LivenessTimeout)
			if err := validator.CheckCredential(cmd.Context(), a.apiKey); err != nil {
				return err
			}
			fmt.Fprintln(a.out, color.GreenString("✓ provider reachable, key accepted"))
			return nil
		},
	}
}
