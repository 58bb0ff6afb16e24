package service

import (
	"errors"
	"fmt"

	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/tokens"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingDocument is returned when a controller needs a document and none was given.
	ErrMissingDocument = errors.New("please upload a document to continue")
	// ErrCredentialRejected is returned when the liveness round-trip fails.
	ErrCredentialRejected = errors.New("key not valid or API is down")
	// ErrSessionNotFound is returned for unknown or ended sessions.
	ErrSessionNotFound = session.ErrNotFound
	// ErrBudgetExceeded is returned when a prompt is at or above the model ceiling.
	ErrBudgetExceeded = tokens.ErrBudgetExceeded
)

// BudgetError carries the estimate that blocked a delegation.
type BudgetError = tokens.BudgetError

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// IsInputError reports whether err should send the user back to the input
// form rather than terminate the interaction.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingDocument) ||
		errors.Is(err, ErrCredentialRejected) ||
		errors.Is(err, ErrBudgetExceeded)
}
