package handlers

import (
	"net/http"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/service"
)

// SummarizeHandler serves the document summarizer.
type SummarizeHandler struct {
	summarizer service.SummarizeService
}

// NewSummarizeHandler creates a new SummarizeHandler.
func NewSummarizeHandler(summarizer service.SummarizeService) *SummarizeHandler {
	return &SummarizeHandler{summarizer: summarizer}
}

// ServeHTTP summarizes an uploaded document.
//
// swagger:route POST /api/v1/summarize summarizeDocument
//
// # Summarize a document
//
// Multipart form with `file`, `model` and `prompt` (`short` or `earnings`).
// The credential comes from `Authorization: Bearer` or the `api_key` field.
// Use `?stream=true` for Server-Sent Events.
//
// responses:
//
//	'200': SummarizeResponse
//	'400': ErrorResponse
//	'401': ErrorResponse
//	'422': ErrorResponse
//	'502': ErrorResponse
func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "", "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.WarnContext(ctx, "invalid multipart body", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	uploads, err := uploadsFrom(r)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open upload", "error", err)
		writeError(w, http.StatusBadRequest, KindInvalidInput, "Failed to read upload")
		return
	}
	defer closeUploads(uploads)

	req := service.SummarizeRequest{
		Model:  r.FormValue("model"),
		Prompt: r.FormValue("prompt"),
		APIKey: apiKeyFrom(r),
	}
	if len(uploads) > 0 {
		req.Upload = uploads[0]
	}

	if !wantsStream(r) {
		resp, err := h.summarizer.Summarize(ctx, req, nil, nil)
		if err != nil {
			handleServiceError(w, ctx, err, "Failed to summarize document")
			return
		}
		writeJSON(w, ctx, http.StatusOK, resp)
		return
	}

	sse, err := newSSEWriter(w, r)
	if err != nil {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, KindInternal, "Streaming not supported")
		return
	}
	resp, err := h.summarizer.Summarize(ctx, req, sse, sse.Chunk)
	if err != nil {
		sse.finish(ctx, nil, err, "Failed to summarize document")
		return
	}
	sse.finish(ctx, resp, nil, "")
}
