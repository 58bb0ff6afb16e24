package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
)

// DocumentHandler serves the chat-with-doc and ComplianceBot pages.
type DocumentHandler struct {
	documents service.DocumentService
	sessions  service.SessionManager
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documents service.DocumentService, sessions service.SessionManager) *DocumentHandler {
	return &DocumentHandler{documents: documents, sessions: sessions}
}

// AttachResponse lists the documents attached by one upload request.
//
// swagger:model AttachResponse
type AttachResponse struct {
	Documents []service.AttachedDocument `json:"documents"`
}

// AttachErrorResponse is returned when an upload request fails part way.
// Documents lists the uploads that were attached before the failure; they
// stay in the session.
//
// swagger:model AttachErrorResponse
type AttachErrorResponse struct {
	ErrorResponse
	Documents []service.AttachedDocument `json:"documents,omitempty"`
}

// QuestionRequest is the body of doc-chat and ask requests.
type QuestionRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key,omitempty"`
}

// Attach uploads one or more files into the session.
//
// swagger:route POST /api/v1/sessions/{id}/documents attachDocuments
//
// Multipart form with one or more `file` parts. Each document is indexed
// for retrieval and persisted as soon as it succeeds.
func (h *DocumentHandler) Attach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.WarnContext(ctx, "invalid multipart body", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sess, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	uploads, err := uploadsFrom(r)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open upload", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Failed to read upload")
		return
	}
	defer closeUploads(uploads)

	if !wantsStream(r) {
		attached, err := h.documents.Attach(ctx, sess, uploads, apiKeyFrom(r), nil)
		if err != nil {
			status, resp := classify(err, "Failed to attach documents")
			logServiceError(ctx, status, err)
			writeJSON(w, ctx, status, AttachErrorResponse{ErrorResponse: resp, Documents: attached})
			return
		}
		writeJSON(w, ctx, http.StatusCreated, AttachResponse{Documents: attached})
		return
	}

	sse, err := newSSEWriter(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, KindInternal, "Streaming not supported")
		return
	}
	attached, err := h.documents.Attach(ctx, sess, uploads, apiKeyFrom(r), sse)
	if err != nil {
		sse.finish(ctx, nil, err, "Failed to attach documents")
		return
	}
	sse.finish(ctx, AttachResponse{Documents: attached}, nil, "")
}

// ChatWithDoc answers a question from the full text of the attached documents.
//
// swagger:route POST /api/v1/sessions/{id}/doc-chat chatWithDoc
func (h *DocumentHandler) ChatWithDoc(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, false, h.documents.ChatWithDoc)
}

type answerFunc func(ctx context.Context, sess *session.Session, req service.DocChatRequest, obs service.Observer, sink func(string) error) (service.DocChatResponse, error)

// answer decodes a question and runs fn as JSON or as an event stream.
func (h *DocumentHandler) answer(w http.ResponseWriter, r *http.Request, debug bool, fn answerFunc) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Invalid request body")
		return
	}

	sess, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	svcReq := service.DocChatRequest{
		Question: req.Question,
		APIKey:   req.APIKey,
		Debug:    debug,
	}
	if key := apiKeyFrom(r); key != "" {
		svcReq.APIKey = key
	}

	if !wantsStream(r) {
		resp, err := fn(ctx, sess, svcReq, nil, nil)
		if err != nil {
			handleServiceError(w, ctx, err, "Failed to answer question")
			return
		}
		writeJSON(w, ctx, http.StatusOK, resp)
		return
	}

	sse, err := newSSEWriter(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, KindInternal, "Streaming not supported")
		return
	}
	resp, err := fn(ctx, sess, svcReq, sse, sse.Chunk)
	if err != nil {
		sse.finish(ctx, nil, err, "Failed to answer question")
		return
	}
	sse.finish(ctx, resp, nil, "")
}
