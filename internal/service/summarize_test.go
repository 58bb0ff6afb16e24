package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/prompts"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/service/mocks"
	"fundbridge-gpt/internal/staging"
)

const fundText = "The fund returned 4.2% in the third quarter, ahead of its benchmark."

func newSummarizer(t *testing.T, tokenCount int) (service.SummarizeService, *mocks.MockLLMClient, string) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockLLMClient(ctrl)
	dir := t.TempDir()
	svc := service.NewSummarizeService(
		service.NewValidator(client, 0),
		staging.NewStager(dir),
		fixedBudget(tokenCount),
		client,
	)
	return svc, client, dir
}

func textUpload(name, body string) *service.Upload {
	return &service.Upload{Name: name, MIMEType: "text/plain", Body: strings.NewReader(body)}
}

func TestSummarizeService_Summarize(t *testing.T) {
	svc, client, dir := newSummarizer(t, 50)

	wantPrompt := prompts.Select(prompts.KeyShort).Render(fundText)
	gomock.InOrder(
		client.EXPECT().Ping(gomock.Any(), "sk-user").Return(nil),
		client.EXPECT().
			ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
				if len(messages) != 1 || messages[0].Content != wantPrompt {
					t.Errorf("delegated messages = %+v, want the rendered short prompt", messages)
				}
				if params.Model != "gpt-3.5-turbo" || params.APIKey != "sk-user" {
					t.Errorf("params = %+v", params)
				}
				return "Returns beat the benchmark.", nil
			}).
			Times(1),
	)

	obs := &recordingObserver{}
	resp, err := svc.Summarize(testContext(), service.SummarizeRequest{
		Upload: textUpload("q3.txt", fundText),
		Model:  "gpt-3.5-turbo",
		Prompt: "short",
		APIKey: "sk-user",
	}, obs, nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if resp.Summary != "Returns beat the benchmark." {
		t.Errorf("Summary = %q", resp.Summary)
	}
	if resp.Estimate.Tokens != 50 || resp.Estimate.Ceiling != 2500 {
		t.Errorf("Estimate = %+v", resp.Estimate)
	}
	if resp.Prompt != prompts.KeyShort || resp.Document != "q3.txt" {
		t.Errorf("response = %+v", resp)
	}

	want := []service.Stage{
		service.StageValidating,
		service.StageStaging,
		service.StageBudgeting,
		service.StageDelegating,
		service.StageRendering,
	}
	if strings.Join(stageNames(obs.stages), ",") != strings.Join(stageNames(want), ",") {
		t.Errorf("stages = %v, want %v", obs.stages, want)
	}
	if len(obs.estimates) != 1 {
		t.Errorf("estimates reported = %d, want 1", len(obs.estimates))
	}
	assertEmptyDir(t, dir)
}

func TestSummarizeService_Summarize_BudgetExceeded(t *testing.T) {
	svc, client, dir := newSummarizer(t, 3000)
	client.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(nil)

	obs := &recordingObserver{}
	resp, err := svc.Summarize(testContext(), service.SummarizeRequest{
		Upload: textUpload("q3.txt", fundText),
		Model:  "gpt-3.5-turbo",
		Prompt: "short",
	}, obs, nil)

	if !errors.Is(err, service.ErrBudgetExceeded) {
		t.Fatalf("Summarize() error = %v, want ErrBudgetExceeded", err)
	}
	var be *service.BudgetError
	if !errors.As(err, &be) || be.Estimate.Tokens != 3000 || be.Estimate.Ceiling != 2500 {
		t.Errorf("BudgetError = %+v", be)
	}
	if resp.Estimate.Tokens != 3000 {
		t.Errorf("response estimate = %+v, want it surfaced", resp.Estimate)
	}
	if len(obs.warnings) != 1 || obs.warnings[0] != "document too large for the selected model" {
		t.Errorf("warnings = %v", obs.warnings)
	}
	if obs.last() != service.StageAwaitingInput {
		t.Errorf("final stage = %v, want awaiting input", obs.last())
	}
	assertEmptyDir(t, dir)
}

func TestSummarizeService_Summarize_AtCeilingBlocks(t *testing.T) {
	svc, client, dir := newSummarizer(t, 2500)
	client.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.Summarize(testContext(), service.SummarizeRequest{
		Upload: textUpload("q3.txt", fundText),
		Model:  "gpt-3.5-turbo",
		Prompt: "earnings",
	}, nil, nil)
	if !errors.Is(err, service.ErrBudgetExceeded) {
		t.Fatalf("Summarize() error = %v, want ErrBudgetExceeded", err)
	}
	assertEmptyDir(t, dir)
}

func TestSummarizeService_Summarize_Failures(t *testing.T) {
	tests := []struct {
		name      string
		req       service.SummarizeRequest
		mockSetup func(*mocks.MockLLMClient)
		wantErr   error
		wantField string
		inputErr  bool
	}{
		{
			name: "missing document",
			req: service.SummarizeRequest{
				Model:  "gpt-3.5-turbo",
				Prompt: "short",
				APIKey: "sk-user",
			},
			mockSetup: func(*mocks.MockLLMClient) {},
			wantErr:   service.ErrMissingDocument,
			inputErr:  true,
		},
		{
			name: "unknown model",
			req: service.SummarizeRequest{
				Upload: textUpload("q3.txt", fundText),
				Model:  "gpt-5-imaginary",
				Prompt: "short",
			},
			mockSetup: func(*mocks.MockLLMClient) {},
			wantField: "model",
			inputErr:  true,
		},
		{
			name: "unknown prompt",
			req: service.SummarizeRequest{
				Upload: textUpload("q3.txt", fundText),
				Model:  "gpt-4",
				Prompt: "haiku",
			},
			mockSetup: func(*mocks.MockLLMClient) {},
			wantField: "prompt",
			inputErr:  true,
		},
		{
			name: "credential rejected",
			req: service.SummarizeRequest{
				Upload: textUpload("q3.txt", fundText),
				Model:  "gpt-4",
				Prompt: "short",
				APIKey: "sk-bad",
			},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), "sk-bad").Return(llm.ErrCredentialInvalid)
			},
			wantErr:  service.ErrCredentialRejected,
			inputErr: true,
		},
		{
			name: "unsupported type",
			req: service.SummarizeRequest{
				Upload: &service.Upload{Name: "setup.exe", MIMEType: "application/x-msdownload", Body: strings.NewReader("MZ")},
				Model:  "gpt-4",
				Prompt: "short",
			},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantField: "file",
			inputErr:  true,
		},
		{
			name: "empty document",
			req: service.SummarizeRequest{
				Upload: textUpload("blank.txt", "  \n "),
				Model:  "gpt-4",
				Prompt: "short",
			},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantField: "file",
			inputErr:  true,
		},
		{
			name: "provider rate limited",
			req: service.SummarizeRequest{
				Upload: textUpload("q3.txt", fundText),
				Model:  "gpt-4",
				Prompt: "short",
			},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().
					ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", &llm.ProviderError{Kind: llm.ErrRateLimited, StatusCode: 429})
			},
			wantErr: llm.ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, dir := newSummarizer(t, 50)
			tt.mockSetup(client)

			obs := &recordingObserver{}
			_, err := svc.Summarize(testContext(), tt.req, obs, nil)
			if err == nil {
				t.Fatal("Summarize() expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Summarize() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantField != "" {
				var ve *service.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Errorf("Summarize() error = %v, want validation error on %s", err, tt.wantField)
				}
			}
			if got := service.IsInputError(err); got != tt.inputErr {
				t.Errorf("IsInputError() = %v, want %v", got, tt.inputErr)
			}
			if tt.inputErr && obs.last() != service.StageAwaitingInput {
				t.Errorf("final stage = %v, want awaiting input", obs.last())
			}
			if !tt.inputErr && obs.last() != service.StageDelegating {
				t.Errorf("final stage = %v, want delegating", obs.last())
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestSummarizeService_Summarize_Stream(t *testing.T) {
	svc, client, dir := newSummarizer(t, 50)

	client.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().
		StreamChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(string) error) error {
			for _, chunk := range []string{"Returns ", "beat ", "the benchmark."} {
				if err := callback(chunk); err != nil {
					return err
				}
			}
			return nil
		})

	var received []string
	resp, err := svc.Summarize(testContext(), service.SummarizeRequest{
		Upload: &service.Upload{Name: "q3.md", Body: strings.NewReader("# Q3\n\n" + fundText)},
		Model:  "gpt-4",
		Prompt: "earnings",
	}, nil, func(chunk string) error {
		received = append(received, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(received) != 3 {
		t.Errorf("sink received %d chunks, want 3", len(received))
	}
	if resp.Summary != "Returns beat the benchmark." {
		t.Errorf("Summary = %q", resp.Summary)
	}
	assertEmptyDir(t, dir)
}

func stageNames(stages []service.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
