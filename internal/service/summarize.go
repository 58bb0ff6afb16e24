package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_summarize_service.go -package=mocks fundbridge-gpt/internal/service SummarizeService

import (
	"context"
	"fmt"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/prompts"
	"fundbridge-gpt/internal/staging"
	"fundbridge-gpt/internal/tokens"
)

// SummarizeRequest is a one-shot summary of an uploaded document.
type SummarizeRequest struct {
	Upload *Upload
	Model  string
	Prompt string
	APIKey string
}

// SummarizeResponse is the rendered summary.
type SummarizeResponse struct {
	Summary  string          `json:"summary"`
	Document string          `json:"document"`
	Model    string          `json:"model"`
	Prompt   prompts.Key     `json:"prompt"`
	Estimate tokens.Estimate `json:"estimate"`
}

// SummarizeService is the document summarizer page.
type SummarizeService interface {
	// Summarize validates, stages and budgets the upload, then delegates the
	// rendered prompt once. A non-nil sink receives streamed fragments.
	Summarize(ctx context.Context, req SummarizeRequest, obs Observer, sink func(chunk string) error) (SummarizeResponse, error)
}

type summarizeService struct {
	validator *Validator
	stager    *staging.Stager
	budget    *tokens.Budget
	llmClient LLMClient
}

// NewSummarizeService creates a new SummarizeService.
func NewSummarizeService(validator *Validator, stager *staging.Stager, budget *tokens.Budget, llmClient LLMClient) SummarizeService {
	return &summarizeService{
		validator: validator,
		stager:    stager,
		budget:    budget,
		llmClient: llmClient,
	}
}

func (s *summarizeService) Summarize(ctx context.Context, req SummarizeRequest, obs Observer, sink func(chunk string) error) (SummarizeResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	t := newTracker(ctx, obs)

	t.enter(StageValidating)
	model, err := resolveModel(req.Model)
	if err != nil {
		return SummarizeResponse{}, t.fail(err)
	}
	key, ok := prompts.Parse(req.Prompt)
	if !ok {
		return SummarizeResponse{}, t.fail(&ValidationError{Field: "prompt", Message: fmt.Sprintf("unknown prompt %q", req.Prompt)})
	}
	if err := s.validator.Validate(ctx, req.Upload, req.APIKey); err != nil {
		return SummarizeResponse{}, t.fail(err)
	}

	t.enter(StageStaging)
	doc, err := stageAndLoad(ctx, s.stager, req.Upload)
	if err != nil {
		return SummarizeResponse{}, t.fail(err)
	}

	t.enter(StageBudgeting)
	prompt := prompts.Select(key).Render(doc.Text)
	est, err := s.budget.Check(prompt, model)
	t.estimate(est)
	resp := SummarizeResponse{Document: req.Upload.Name, Model: model.ID, Prompt: key, Estimate: est}
	if err != nil {
		logger.WarnContext(ctx, "summary blocked by token budget", "tokens", est.Tokens, "ceiling", est.Ceiling)
		return resp, t.fail(err)
	}

	t.enter(StageDelegating)
	summary, err := delegate(ctx, s.llmClient, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.ChatParams{
		Model:       model.ID,
		APIKey:      req.APIKey,
		Temperature: llm.Temperature(0),
	}, sink)
	if err != nil {
		logger.ErrorContext(ctx, "failed to summarize document", "error", err)
		return SummarizeResponse{}, WrapError(err, "failed to summarize document")
	}

	t.enter(StageRendering)
	resp.Summary = summary
	logger.InfoContext(ctx, "document summarized",
		"document", req.Upload.Name,
		"model", model.ID,
		"prompt", string(key),
		"tokens", est.Tokens,
		"summary_length", len(summary),
	)
	return resp, nil
}
