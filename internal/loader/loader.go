// Package loader extracts plain text from staged documents.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"fundbridge-gpt/internal/staging"
)

var (
	// ErrEmptyDocument is returned when a document yields no text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrInvalidEncoding is returned for text documents that are not UTF-8.
	ErrInvalidEncoding = errors.New("document is not valid UTF-8")
)

// Document is the text extracted from a staged file.
type Document struct {
	MIMEType string
	Text     string
	// Pages is the number of PDF pages that produced text; 0 for other types.
	Pages int
}

// Load reads the file at path and extracts its text according to mimeType.
func Load(path, mimeType string) (Document, error) {
	mt := staging.MediaType(mimeType)

	var (
		text  string
		pages int
		err   error
	)
	switch mt {
	case "text/plain", "text/csv":
		text, err = loadText(path)
	case "text/markdown":
		text, err = loadMarkdown(path)
	case "application/pdf":
		text, pages, err = loadPDF(path)
	default:
		return Document{}, fmt.Errorf("%w: %q", staging.ErrUnsupportedType, mimeType)
	}
	if err != nil {
		return Document{}, err
	}

	if strings.TrimSpace(text) == "" {
		return Document{}, ErrEmptyDocument
	}

	return Document{MIMEType: mt, Text: text, Pages: pages}, nil
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
