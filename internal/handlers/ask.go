package handlers

import (
	"net/http"
	"strings"
)

// Ask answers a question with conversational retrieval over the session's
// indexed documents (ComplianceBot).
//
// Use the `debug=true` query parameter to include the retrieved chunks with
// their vector and lexical scores.
//
// swagger:route POST /api/v1/sessions/{id}/ask askQuestion
//
// # Ask a question using retrieval
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// - text/event-stream
// parameters:
//   - in: query
//     name: debug
//     type: boolean
//     description: Enable debug mode to include detailed retrieval information
//     required: false
//   - in: query
//     name: stream
//     type: boolean
//     required: false
//
// responses:
//
//	'200':
//	  description: Successful response with answer and references
//	'400':
//	  description: Bad request (empty question or no documents attached)
//	'404':
//	  description: Unknown session
//	'422':
//	  description: Prompt larger than the selected model allows
//	'502':
//	  description: External service error (LLM or embedding service unavailable)
func (h *DocumentHandler) Ask(w http.ResponseWriter, r *http.Request) {
	// Parse debug query parameter
	debug := false
	if debugParam := r.URL.Query().Get("debug"); debugParam != "" {
		debug = strings.ToLower(debugParam) == "true" || debugParam == "1"
	}
	h.answer(w, r, debug, h.documents.Ask)
}
