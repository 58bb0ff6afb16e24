package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
)

// SessionHandler manages conversation sessions.
type SessionHandler struct {
	sessions     service.SessionManager
	defaultModel string
}

// NewSessionHandler creates a new SessionHandler. defaultModel is used when
// a create request names no model.
func NewSessionHandler(sessions service.SessionManager, defaultModel string) *SessionHandler {
	return &SessionHandler{sessions: sessions, defaultModel: defaultModel}
}

// SessionRequest is the body of create and update requests.
type SessionRequest struct {
	Model string `json:"model"`
}

// SessionResponse describes a session.
//
// swagger:model SessionResponse
type SessionResponse struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	History   []llm.Message      `json:"history"`
	Documents []session.Document `json:"documents"`
	// DocumentTokens is the summed token estimate of the attached documents.
	DocumentTokens int `json:"document_tokens"`
}

func newSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		Model:          s.Model(),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		History:        s.History(),
		Documents:      s.Documents(),
		DocumentTokens: s.DocumentTokens(),
	}
}

func validateModel(id string) error {
	if _, ok := catalog.Lookup(id); !ok {
		return &service.ValidationError{Field: "model", Message: fmt.Sprintf("unknown model %q", id)}
	}
	return nil
}

// Create starts a new session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An empty body selects the default model.
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Invalid request body")
		return
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}
	if err := validateModel(req.Model); err != nil {
		handleServiceError(w, ctx, err, "Failed to create session")
		return
	}

	s, err := h.sessions.Create(ctx, req.Model)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create session")
		return
	}
	writeJSON(w, ctx, http.StatusCreated, newSessionResponse(s))
}

// Get returns a session with its history and documents.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, newSessionResponse(s))
}

// Update changes the selected model.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Invalid request body")
		return
	}
	if err := validateModel(req.Model); err != nil {
		handleServiceError(w, ctx, err, "Failed to update session")
		return
	}

	s, ok := h.load(w, r)
	if !ok {
		return
	}
	s.SetModel(req.Model)
	if err := h.sessions.Commit(ctx, s); err != nil {
		handleServiceError(w, ctx, err, "Failed to update session")
		return
	}
	writeJSON(w, ctx, http.StatusOK, newSessionResponse(s))
}

// Delete ends a session and removes everything stored for it.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.End(ctx, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, ctx, err, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load reads the session named in the URL, writing an error response on failure.
func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	return loadSession(w, r, h.sessions)
}

func loadSession(w http.ResponseWriter, r *http.Request, sessions service.SessionManager) (*session.Session, bool) {
	ctx := r.Context()
	s, err := sessions.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load session")
		return nil, false
	}
	return s, true
}
