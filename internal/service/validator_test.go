package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/service/mocks"
)

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		upload    *service.Upload
		apiKey    string
		mockSetup func(*mocks.MockLLMClient)
		wantErr   error
	}{
		{
			name:      "missing upload never calls provider",
			upload:    nil,
			apiKey:    "sk-good",
			mockSetup: func(*mocks.MockLLMClient) {},
			wantErr:   service.ErrMissingDocument,
		},
		{
			name:      "upload without body",
			upload:    &service.Upload{Name: "q3.txt"},
			apiKey:    "sk-good",
			mockSetup: func(*mocks.MockLLMClient) {},
			wantErr:   service.ErrMissingDocument,
		},
		{
			name:   "missing upload with empty key",
			upload: nil,
			mockSetup: func(*mocks.MockLLMClient) {
			},
			wantErr: service.ErrMissingDocument,
		},
		{
			name:   "valid key",
			upload: &service.Upload{Name: "q3.txt", Body: strings.NewReader("x")},
			apiKey: "sk-good",
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), "sk-good").Return(nil)
			},
		},
		{
			name:   "rejected key",
			upload: &service.Upload{Name: "q3.txt", Body: strings.NewReader("x")},
			apiKey: "sk-bad",
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), "sk-bad").Return(llm.ErrCredentialInvalid)
			},
			wantErr: service.ErrCredentialRejected,
		},
		{
			name:   "provider down",
			upload: &service.Upload{Name: "q3.txt", Body: strings.NewReader("x")},
			apiKey: "sk-good",
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().Ping(gomock.Any(), "sk-good").Return(llm.ErrProviderUnavailable)
			},
			wantErr: service.ErrCredentialRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockLLMClient(ctrl)
			tt.mockSetup(client)

			v := service.NewValidator(client, time.Second)
			err := v.Validate(testContext(), tt.upload, tt.apiKey)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_CheckCredential_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockLLMClient(ctrl)

	client.EXPECT().
		Ping(gomock.Any(), "sk").
		DoAndReturn(func(ctx context.Context, apiKey string) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("Ping() context has no deadline")
			}
			<-ctx.Done()
			return ctx.Err()
		})

	v := service.NewValidator(client, 10*time.Millisecond)
	if err := v.CheckCredential(testContext(), "sk"); !errors.Is(err, service.ErrCredentialRejected) {
		t.Errorf("CheckCredential() error = %v, want ErrCredentialRejected", err)
	}
}

func TestNewValidator_DefaultTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockLLMClient(ctrl)

	client.EXPECT().
		Ping(gomock.Any(), "").
		DoAndReturn(func(ctx context.Context, apiKey string) error {
			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatal("Ping() context has no deadline")
			}
			if remaining := time.Until(deadline); remaining <= time.Second || remaining > service.DefaultLivenessTimeout {
				t.Errorf("deadline in %v, want about %v", remaining, service.DefaultLivenessTimeout)
			}
			return nil
		})

	if err := service.NewValidator(client, 0).CheckCredential(testContext(), ""); err != nil {
		t.Fatalf("CheckCredential() error = %v", err)
	}
}
