package handlers

import (
	"encoding/json"
	"net/http"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/tokens"
)

// ChatHandler handles HTTP requests for the basic chatbot.
type ChatHandler struct {
	chatService service.ChatService
	sessions    service.SessionManager
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService, sessions service.SessionManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		sessions:    sessions,
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
	APIKey  string `json:"api_key,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply    string          `json:"reply"`
	Estimate tokens.Estimate `json:"estimate"`
}

// ServeHTTP handles HTTP requests for chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "", "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Invalid request body")
		return
	}

	sess, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	// Convert HTTP request to service request
	svcReq := service.ChatRequest{
		Message: req.Message,
		APIKey:  req.APIKey,
	}
	if key := apiKeyFrom(r); key != "" {
		svcReq.APIKey = key
	}

	if wantsStream(r) {
		h.handleStreamingChat(w, r, sess, svcReq)
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, sess, svcReq)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	writeJSON(w, ctx, http.StatusOK, ChatResponse{
		Reply:    svcResp.Reply,
		Estimate: svcResp.Estimate,
	})
}

// handleStreamingChat handles streaming chat requests using Server-Sent Events.
func (h *ChatHandler) handleStreamingChat(w http.ResponseWriter, r *http.Request, sess *session.Session, req service.ChatRequest) {
	ctx := r.Context()

	sse, err := newSSEWriter(w, r)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, KindInternal, "Streaming not supported")
		return
	}

	resp, err := h.chatService.StreamChat(ctx, sess, req, sse, sse.Chunk)
	if err != nil {
		sse.finish(ctx, nil, err, "Failed to process chat request")
		return
	}
	sse.finish(ctx, ChatResponse{Reply: resp.Reply, Estimate: resp.Estimate}, nil, "")
}
