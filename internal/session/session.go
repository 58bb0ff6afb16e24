// Package session holds the per-conversation context that every controller
// receives explicitly: selected model, transcript and attached documents.
package session

import (
	"time"

	"fundbridge-gpt/internal/llm"
)

// Document is a document attached to a session.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIMEType  string    `json:"mime_type"`
	Text      string    `json:"-"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a loaded conversation. Changes made through Append and
// SetModel stay pending until Manager.Commit; dropping the value discards them.
// A Session is not safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	model     string
	history   []llm.Message
	pending   []llm.Message
	documents []Document
	dirty     bool
}

// New returns an empty session that has not been persisted.
func New(id, model string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now, model: model}
}

// Model returns the selected catalog model ID, including a pending change.
func (s *Session) Model() string {
	return s.model
}

// SetModel changes the selected model. The caller validates the ID.
func (s *Session) SetModel(id string) {
	if id == s.model {
		return
	}
	s.model = id
	s.dirty = true
}

// Append adds a turn to the pending transcript.
func (s *Session) Append(role, content string) {
	s.pending = append(s.pending, llm.Message{Role: role, Content: content})
	s.dirty = true
}

// History returns the committed transcript followed by pending turns.
func (s *Session) History() []llm.Message {
	out := make([]llm.Message, 0, len(s.history)+len(s.pending))
	out = append(out, s.history...)
	return append(out, s.pending...)
}

// Pending returns the turns not yet committed.
func (s *Session) Pending() []llm.Message {
	out := make([]llm.Message, len(s.pending))
	copy(out, s.pending)
	return out
}

// Dirty reports whether the session has uncommitted changes.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Documents returns the attached documents in attach order.
func (s *Session) Documents() []Document {
	out := make([]Document, len(s.documents))
	copy(out, s.documents)
	return out
}

// AddDocument records a document that has already been persisted and indexed.
// The session becomes dirty so the next Commit counts as activity.
func (s *Session) AddDocument(d Document) {
	s.documents = append(s.documents, d)
	s.dirty = true
}

// DocumentTokens returns the summed token estimate of the attached documents.
func (s *Session) DocumentTokens() int {
	total := 0
	for _, d := range s.documents {
		total += d.Tokens
	}
	return total
}

func (s *Session) markCommitted(now time.Time) {
	s.history = append(s.history, s.pending...)
	s.pending = nil
	s.dirty = false
	s.UpdatedAt = now
}
