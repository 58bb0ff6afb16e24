package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/loader"
	"fundbridge-gpt/internal/staging"
)

// resolveModel looks up a catalog model by ID.
func resolveModel(id string) (catalog.Model, error) {
	model, ok := catalog.Lookup(id)
	if !ok {
		return catalog.Model{}, &ValidationError{Field: "model", Message: fmt.Sprintf("unknown model %q", id)}
	}
	return model, nil
}

// stageAndLoad copies the upload to a temp file, extracts its text and
// removes the file again before returning.
func stageAndLoad(ctx context.Context, stager *staging.Stager, upload *Upload) (loader.Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	mimeType := staging.NormalizeMIME(upload.MIMEType, upload.Name)
	file, err := stager.Stage(upload.Body, mimeType)
	if err != nil {
		if errors.Is(err, staging.ErrUnsupportedType) {
			return loader.Document{}, &ValidationError{Field: "file", Message: err.Error()}
		}
		return loader.Document{}, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to remove staged file", "path", file.Path, "error", err)
		}
	}()
	logger.DebugContext(ctx, "staged upload", "name", upload.Name, "path", file.Path, "bytes", file.Size)

	doc, err := loader.Load(file.Path, file.MIMEType)
	if err != nil {
		if errors.Is(err, loader.ErrEmptyDocument) || errors.Is(err, loader.ErrInvalidEncoding) || errors.Is(err, staging.ErrUnsupportedType) {
			return loader.Document{}, &ValidationError{Field: "file", Message: err.Error()}
		}
		return loader.Document{}, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// delegate sends messages to the provider. A non-nil sink receives streamed
// fragments; the full reply is returned either way.
func delegate(ctx context.Context, client LLMClient, messages []llm.Message, params llm.ChatParams, sink func(chunk string) error) (string, error) {
	if sink == nil {
		return client.ChatWithMessages(ctx, messages, params)
	}
	var b strings.Builder
	err := client.StreamChatWithMessages(ctx, messages, params, func(chunk string) error {
		b.WriteString(chunk)
		return sink(chunk)
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// promptText is the text a prompt is budgeted on.
func promptText(messages []llm.Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
