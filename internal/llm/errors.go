package llm

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Provider error kinds. Every error returned by the clients in this
// package matches exactly one of them with errors.Is.
var (
	ErrCredentialInvalid   = errors.New("provider rejected the credential")
	ErrRateLimited         = errors.New("provider rate limit exceeded")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4096

// ProviderError describes a failed provider call.
type ProviderError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// KindForStatus maps a non-2xx HTTP status to an error kind.
func KindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCredentialInvalid
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrProviderUnavailable
	}
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ProviderError{
		Kind:       KindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       string(raw),
	}
}

func transportError(err error) error {
	return &ProviderError{Kind: ErrProviderUnavailable, Err: err}
}

func malformedError(err error) error {
	return &ProviderError{Kind: ErrMalformedResponse, Err: err}
}

// errStreamIncomplete is returned when a stream ends before the provider
// marks the reply finished.
func errStreamIncomplete() error {
	return malformedError(errors.New("stream ended before completion"))
}
