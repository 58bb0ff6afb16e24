package service

import (
	"context"
	"time"

	"fundbridge-gpt/internal/contextutil"
)

// DefaultLivenessTimeout bounds the credential round-trip.
const DefaultLivenessTimeout = 10 * time.Second

// Pinger performs a cheap authenticated round-trip to the provider.
type Pinger interface {
	Ping(ctx context.Context, apiKey string) error
}

// Validator checks controller input before any work is done.
type Validator struct {
	pinger  Pinger
	timeout time.Duration
}

// NewValidator creates a validator. A non-positive timeout uses DefaultLivenessTimeout.
func NewValidator(pinger Pinger, timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = DefaultLivenessTimeout
	}
	return &Validator{pinger: pinger, timeout: timeout}
}

// Validate fails with ErrMissingDocument when no document was uploaded,
// without contacting the provider. Otherwise the credential is checked.
func (v *Validator) Validate(ctx context.Context, upload *Upload, apiKey string) error {
	if upload == nil || upload.Body == nil {
		return ErrMissingDocument
	}
	return v.CheckCredential(ctx, apiKey)
}

// CheckCredential pings the provider with apiKey. A bad key and an outage
// both yield ErrCredentialRejected.
func (v *Validator) CheckCredential(ctx context.Context, apiKey string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.pinger.Ping(ctx, apiKey); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "credential check failed", "error", err)
		return ErrCredentialRejected
	}
	return nil
}
