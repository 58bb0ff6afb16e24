package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/tokens"
)

// progress prints controller progress to the terminal.
type progress struct {
	w       io.Writer
	verbose bool
}

var _ service.Observer = (*progress)(nil)

func (p *progress) OnStage(ctx context.Context, stage service.Stage) {
	if p.verbose {
		fmt.Fprintln(p.w, color.HiBlackString("› %s", stage))
	}
}

func (p *progress) OnEstimate(ctx context.Context, est tokens.Estimate) {
	line := fmt.Sprintf("Estimated tokens: %d / %d (%s)", est.Tokens, est.Ceiling, est.Model)
	if est.Allowed() {
		fmt.Fprintln(p.w, color.CyanString(line))
	} else {
		fmt.Fprintln(p.w, color.RedString(line))
	}
}

func (p *progress) OnWarning(ctx context.Context, message string) {
	fmt.Fprintln(p.w, color.YellowString("Warning: %s", message))
}
