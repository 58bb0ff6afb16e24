// Package staging copies uploaded documents to temporary files that
// document loaders can open by path.
package staging

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedType is returned for MIME types that have no loader.
var ErrUnsupportedType = errors.New("unsupported document type")

const octetStream = "application/octet-stream"

var extensions = map[string]string{
	"text/plain":      ".txt",
	"application/pdf": ".pdf",
	"text/csv":        ".csv",
	"text/markdown":   ".md",
}

// MediaType strips parameters such as charset and lower-cases the type.
func MediaType(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	return strings.ToLower(mt)
}

// ExtensionFor returns the file extension for a declared MIME type.
func ExtensionFor(mimeType string) (string, error) {
	ext, ok := extensions[MediaType(mimeType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	return ext, nil
}

// NormalizeMIME fills in a missing or generic MIME type from the file name.
func NormalizeMIME(mimeType, filename string) string {
	mt := MediaType(mimeType)
	if mt != "" && mt != octetStream {
		return mt
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for typ, e := range extensions {
		if e == ext {
			return typ
		}
	}
	if ext == ".markdown" {
		return "text/markdown"
	}
	return mt
}

// Stager writes uploads into a directory.
type Stager struct {
	dir string
}

// NewStager creates a stager. An empty dir uses the OS temp directory.
func NewStager(dir string) *Stager {
	return &Stager{dir: dir}
}

// File is a staged upload. Close removes it from disk.
type File struct {
	Path     string
	MIMEType string
	Size     int64

	once     sync.Once
	closeErr error
}

// Close deletes the staged file. It is safe to call more than once.
func (f *File) Close() error {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.closeErr = fmt.Errorf("failed to remove staged file: %w", err)
		}
	})
	return f.closeErr
}

// Stage copies r into a new temp file with an extension matching mimeType.
func (s *Stager) Stage(r io.Reader, mimeType string) (*File, error) {
	ext, err := ExtensionFor(mimeType)
	if err != nil {
		return nil, err
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(s.dir, "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return nil, fmt.Errorf("failed to write staged file: %w", copyErr)
		}
		return nil, fmt.Errorf("failed to close staged file: %w", closeErr)
	}

	return &File{
		Path:     tmp.Name(),
		MIMEType: MediaType(mimeType),
		Size:     n,
	}, nil
}
