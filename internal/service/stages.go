package service

import (
	"context"
	"errors"
	"io"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/tokens"
)

// Stage is a step of a controller interaction.
type Stage string

const (
	StageAwaitingInput Stage = "awaiting_input"
	StageValidating    Stage = "validating"
	StageStaging       Stage = "staging"
	StageBudgeting     Stage = "budgeting"
	StageDelegating    Stage = "delegating"
	StageRendering     Stage = "rendering"
)

var stageOrder = map[Stage]int{
	StageAwaitingInput: 0,
	StageValidating:    1,
	StageStaging:       2,
	StageBudgeting:     3,
	StageDelegating:    4,
	StageRendering:     5,
}

// Observer receives progress of a controller interaction. Streaming
// handlers turn these calls into SSE events.
type Observer interface {
	OnStage(ctx context.Context, stage Stage)
	OnEstimate(ctx context.Context, est tokens.Estimate)
	OnWarning(ctx context.Context, message string)
}

// Upload is a document received from the user.
type Upload struct {
	Name     string
	MIMEType string
	Body     io.Reader
}

// tracker walks the stage machine forward and reports to an optional observer.
type tracker struct {
	ctx     context.Context
	obs     Observer
	current Stage
}

func newTracker(ctx context.Context, obs Observer) *tracker {
	return &tracker{ctx: ctx, obs: obs, current: StageAwaitingInput}
}

// enter moves to a later stage. Moving backwards is ignored.
func (t *tracker) enter(stage Stage) {
	if stageOrder[stage] <= stageOrder[t.current] {
		return
	}
	t.current = stage
	contextutil.LoggerFromContext(t.ctx).DebugContext(t.ctx, "stage", "stage", string(stage))
	if t.obs != nil {
		t.obs.OnStage(t.ctx, stage)
	}
}

func (t *tracker) estimate(est tokens.Estimate) {
	if t.obs != nil {
		t.obs.OnEstimate(t.ctx, est)
	}
}

// fail ends the interaction. Input errors return to awaiting-input with a
// warning; anything else leaves the stage where it failed.
func (t *tracker) fail(err error) error {
	if !IsInputError(err) {
		return err
	}
	t.current = StageAwaitingInput
	if t.obs != nil {
		t.obs.OnWarning(t.ctx, warningText(err))
		t.obs.OnStage(t.ctx, StageAwaitingInput)
	}
	return err
}

func warningText(err error) string {
	for _, target := range []error{ErrBudgetExceeded, ErrCredentialRejected, ErrMissingDocument} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
