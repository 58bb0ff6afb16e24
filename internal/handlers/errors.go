package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/tokens"
)

// Error kinds returned in ErrorResponse.Kind.
const (
	KindInvalidInput       = "invalid_input"
	KindMissingDocument    = "missing_document"
	KindCredentialRejected = "credential_rejected"
	KindBudgetExceeded     = "budget_exceeded"
	KindSessionNotFound    = "session_not_found"
	KindCredentialInvalid  = "credential_invalid"
	KindRateLimited        = "rate_limited"
	KindProviderError      = "provider_unavailable"
	KindMalformedResponse  = "malformed_response"
	KindInternal           = "internal"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	// Estimate is set when a prompt was blocked by the token budget.
	Estimate *tokens.Estimate `json:"estimate,omitempty"`
}

// classify maps a service error to a status code and response body.
func classify(err error, defaultMsg string) (int, ErrorResponse) {
	var validationErr *service.ValidationError
	var budgetErr *service.BudgetError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{Error: validationErr.Error(), Kind: KindInvalidInput}
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Kind: KindInvalidInput}
	case errors.Is(err, service.ErrMissingDocument):
		return http.StatusBadRequest, ErrorResponse{Error: service.ErrMissingDocument.Error(), Kind: KindMissingDocument}
	case errors.Is(err, service.ErrCredentialRejected):
		return http.StatusUnauthorized, ErrorResponse{Error: service.ErrCredentialRejected.Error(), Kind: KindCredentialRejected}
	case errors.As(err, &budgetErr):
		est := budgetErr.Estimate
		return http.StatusUnprocessableEntity, ErrorResponse{Error: service.ErrBudgetExceeded.Error(), Kind: KindBudgetExceeded, Estimate: &est}
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Session not found", Kind: KindSessionNotFound}
	case errors.Is(err, llm.ErrCredentialInvalid):
		return http.StatusUnauthorized, ErrorResponse{Error: "Provider rejected the API key", Kind: KindCredentialInvalid}
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{Error: "Provider rate limit reached", Kind: KindRateLimited}
	case errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusBadGateway, ErrorResponse{Error: "Provider returned an invalid response", Kind: KindMalformedResponse}
	case errors.Is(err, llm.ErrProviderUnavailable):
		return http.StatusBadGateway, ErrorResponse{Error: "External service error", Kind: KindProviderError}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: defaultMsg, Kind: KindInternal}
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	status, resp := classify(err, defaultMsg)
	logServiceError(ctx, status, err)
	writeJSON(w, ctx, status, resp)
}

func logServiceError(ctx context.Context, status int, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "service error", "error", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Kind:  kind,
	})
}

func writeJSON(w http.ResponseWriter, ctx context.Context, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
