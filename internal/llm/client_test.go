package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.example.com/", "test-key", "test-model")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "https://api.example.com" {
		t.Errorf("NewClient() BaseURL = %v, want trailing slash trimmed", client.BaseURL)
	}
	if client.APIKey != "test-key" {
		t.Errorf("NewClient() APIKey = %v, want test-key", client.APIKey)
	}
	if client.Model != "test-model" {
		t.Errorf("NewClient() Model = %v, want test-model", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func chatReply(w http.ResponseWriter, content string) {
	resp := ChatResponse{
		ID:     "test-id",
		Object: "chat.completion",
		Choices: []ChatChoice{
			{Index: 0, Message: Message{Role: RoleAssistant, Content: content}, FinishReason: "stop"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestClient_Chat(t *testing.T) {
	tests := []struct {
		name       string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantKind   error
	}{
		{
			name: "successful chat",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
					t.Errorf("Authorization = %q, want Bearer test-key", got)
				}
				chatReply(w, "Hi there!")
			},
			wantReply: "Hi there!",
		},
		{
			name: "no choices returned",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{ID: "test-id"})
			},
			wantKind: ErrMalformedResponse,
		},
		{
			name: "undecodable body",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			wantKind: ErrMalformedResponse,
		},
		{
			name: "server error",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal server error"))
			},
			wantKind: ErrProviderUnavailable,
		},
		{
			name: "bad credential",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantKind: ErrCredentialInvalid,
		},
		{
			name: "forbidden",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantKind: ErrCredentialInvalid,
		},
		{
			name: "rate limited",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantKind: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			reply, err := client.Chat(context.Background(), "Hello")

			if tt.wantKind != nil {
				if !errors.Is(err, tt.wantKind) {
					t.Errorf("Chat() error = %v, want kind %v", err, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("Chat() unexpected error: %v", err)
			}
			if reply != tt.wantReply {
				t.Errorf("Chat() reply = %v, want %v", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_Chat_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "k", "m").Chat(context.Background(), "Hello")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Chat() error = %v, want ErrProviderUnavailable", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Chat() error should be a *ProviderError")
	}
	if pe.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failures", pe.StatusCode)
	}
}

func TestClient_Chat_ProviderErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", "m").Chat(context.Background(), "Hello")

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Chat() error = %v, want *ProviderError", err)
	}
	if pe.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", pe.StatusCode, http.StatusBadGateway)
	}
	if pe.Body != "upstream down" {
		t.Errorf("Body = %q, want upstream down", pe.Body)
	}
}

func TestClient_StreamChat(t *testing.T) {
	tests := []struct {
		name       string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantChunks []string
		wantKind   error
	}{
		{
			name: "successful streaming",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Accept") != "text/event-stream" {
					t.Error("missing Accept header")
				}

				w.Header().Set("Content-Type", "text/event-stream")
				flusher, _ := w.(http.Flusher)

				chunks := []string{
					`{"choices":[{"delta":{"content":"Hello"}}]}`,
					`not json`,
					`{"choices":[{"delta":{"content":" "}}]}`,
					`{"choices":[{"delta":{"content":"world"}}]}`,
					`{"choices":[{"finish_reason":"stop"}]}`,
				}

				for _, chunk := range chunks {
					_, _ = w.Write([]byte("data: " + chunk + "\n\n"))
					flusher.Flush()
				}
				_, _ = w.Write([]byte("data: [DONE]\n\n"))
			},
			wantChunks: []string{"Hello", " ", "world"},
		},
		{
			name: "done marker without finish reason",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"Hi"}}]}` + "\n\n"))
				_, _ = w.Write([]byte("data: [DONE]\n\n"))
			},
			wantChunks: []string{"Hi"},
		},
		{
			name: "connection closed mid-stream",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"Returns beat"}}]}` + "\n\n"))
			},
			wantKind: ErrMalformedResponse,
		},
		{
			name: "server error",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantKind: ErrProviderUnavailable,
		},
		{
			name: "rate limited",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantKind: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			var receivedChunks []string

			err := client.StreamChat(context.Background(), "Hello", func(chunk string) error {
				receivedChunks = append(receivedChunks, chunk)
				return nil
			})

			if tt.wantKind != nil {
				if !errors.Is(err, tt.wantKind) {
					t.Errorf("StreamChat() error = %v, want kind %v", err, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("StreamChat() unexpected error: %v", err)
			}

			if len(receivedChunks) != len(tt.wantChunks) {
				t.Fatalf("StreamChat() received %d chunks, want %d", len(receivedChunks), len(tt.wantChunks))
			}
			for i, chunk := range receivedChunks {
				if chunk != tt.wantChunks[i] {
					t.Errorf("StreamChat() chunk[%d] = %v, want %v", i, chunk, tt.wantChunks[i])
				}
			}
		})
	}
}

func TestClient_StreamChat_CallbackErrorStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 3; i++ {
			_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"x"}}]}` + "\n\n"))
		}
	}))
	defer server.Close()

	stop := errors.New("client went away")
	calls := 0
	err := NewClient(server.URL, "k", "m").StreamChat(context.Background(), "Hello", func(string) error {
		calls++
		return stop
	})

	if !errors.Is(err, stop) {
		t.Errorf("StreamChat() error = %v, want callback error", err)
	}
	if errors.Is(err, ErrProviderUnavailable) {
		t.Error("callback errors must not be classified as provider errors")
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // Ignore decode error in test

		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Model != "custom-model" {
			t.Errorf("Model = %q, want custom-model", req.Model)
		}
		if req.MaxTokens != 100 {
			t.Errorf("MaxTokens = %d, want 100", req.MaxTokens)
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Errorf("Temperature = %v, want explicit 0", req.Temperature)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-key" {
			t.Errorf("Authorization = %q, want per-call override", got)
		}
		chatReply(w, "Response")
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key", "test-model")

	messages := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant"},
		{Role: RoleUser, Content: "Hello"},
	}

	params := ChatParams{
		Model:       "custom-model",
		APIKey:      "user-key",
		MaxTokens:   100,
		Temperature: Temperature(0),
	}

	reply, err := client.ChatWithMessages(context.Background(), messages, params)
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}

	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}

func TestClient_ChatWithMessages_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw) // Ignore decode error in test

		if raw["model"] != "test-model" {
			t.Errorf("expected model test-model, got %v", raw["model"])
		}
		if _, ok := raw["temperature"]; ok {
			t.Error("temperature should be omitted when unset")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want client key", got)
		}
		chatReply(w, "Response")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	reply, err := client.ChatWithMessages(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}

func TestClient_Ping(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		status   int
		body     string
		wantKind error
	}{
		{name: "ok", apiKey: "good", status: http.StatusOK, body: `{"data":[{"id":"gpt-4"}]}`},
		{name: "bad key", apiKey: "bad", status: http.StatusUnauthorized, wantKind: ErrCredentialInvalid},
		{name: "outage", apiKey: "good", status: http.StatusServiceUnavailable, wantKind: ErrProviderUnavailable},
		{name: "garbage", apiKey: "good", status: http.StatusOK, body: "nope", wantKind: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models" {
					t.Errorf("path = %s, want /v1/models", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer "+tt.apiKey {
					t.Errorf("Authorization = %q", got)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL, "server-key", "m").Ping(context.Background(), tt.apiKey)
			if tt.wantKind == nil {
				if err != nil {
					t.Errorf("Ping() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("Ping() error = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4"},{"id":"gpt-3.5-turbo"}]}`))
	}))
	defer server.Close()

	ids, err := NewClient(server.URL, "k", "m").ListModels(context.Background(), "")
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "gpt-4" || ids[1] != "gpt-3.5-turbo" {
		t.Errorf("ListModels() = %v", ids)
	}
}
