package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/tokens"
)

var errStreamingUnsupported = errors.New("streaming not supported by response writer")

// sseWriter writes Server-Sent Events and reports controller progress as
// stage, estimate and warning events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

var _ service.Observer = (*sseWriter)(nil)

// newSSEWriter sets the event-stream headers. Nothing is written until the
// first event, so callers can still send a JSON error when this fails.
func newSSEWriter(w http.ResponseWriter, r *http.Request) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// CORS headers for streaming
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	} else {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	return &sseWriter{w: w, flusher: flusher}, nil
}

// write sends one event. Multi-line data is split into several data lines.
func (s *sseWriter) write(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(event, string(data))
}

// Chunk sends a response fragment. It is the controllers' sink.
func (s *sseWriter) Chunk(chunk string) error {
	return s.write("", chunk)
}

func (s *sseWriter) OnStage(ctx context.Context, stage service.Stage) {
	if err := s.write("stage", string(stage)); err != nil {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "failed to write stage event", "error", err)
	}
}

func (s *sseWriter) OnEstimate(ctx context.Context, est tokens.Estimate) {
	if err := s.writeJSON("estimate", est); err != nil {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "failed to write estimate event", "error", err)
	}
}

func (s *sseWriter) OnWarning(ctx context.Context, message string) {
	if err := s.write("warning", message); err != nil {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "failed to write warning event", "error", err)
	}
}

// finish ends the stream with the final result or an error event, then
// the done marker.
func (s *sseWriter) finish(ctx context.Context, result any, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	if err != nil {
		_, resp := classify(err, defaultMsg)
		if service.IsInputError(err) {
			logger.WarnContext(ctx, "streaming request rejected", "error", err)
		} else {
			logger.ErrorContext(ctx, "error streaming response", "error", err)
		}
		_ = s.writeJSON("error", resp)
	} else if result != nil {
		_ = s.writeJSON("result", result)
	}
	_ = s.write("", "[DONE]")
}
