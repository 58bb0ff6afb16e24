package handlers

import (
	"net/http"
	"strings"

	"fundbridge-gpt/internal/service"
)

// maxMultipartMemory is how much of a multipart body is held in memory;
// the rest is spooled to disk by net/http.
const maxMultipartMemory = 32 << 20

// apiKeyFrom returns the caller's credential: a bearer token, then an
// api_key form field. Empty means the server key is used.
func apiKeyFrom(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.FormValue("api_key"))
}

// wantsStream reports whether the client asked for Server-Sent Events.
func wantsStream(r *http.Request) bool {
	return r.URL.Query().Get("stream") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// uploadsFrom returns every file sent under the "file" field. Callers close
// the returned bodies with closeUploads.
func uploadsFrom(r *http.Request) ([]*service.Upload, error) {
	if r.MultipartForm == nil || r.MultipartForm.File == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File["file"]
	uploads := make([]*service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeUploads(uploads)
			return nil, err
		}
		uploads = append(uploads, &service.Upload{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Body:     f,
		})
	}
	return uploads, nil
}

func closeUploads(uploads []*service.Upload) {
	for _, u := range uploads {
		if c, ok := u.Body.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}
