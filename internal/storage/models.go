package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// SessionRecord is a conversation session row.
type SessionRecord struct {
	ID        string // UUID
	Model     string // Selected catalog model ID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is one turn of a session transcript.
type MessageRecord struct {
	SessionID string
	Position  int // 0-based order within the session
	Role      string
	Content   string
	CreatedAt time.Time
}

// DocumentRecord is a document attached to a session.
type DocumentRecord struct {
	ID        string // UUID
	SessionID string
	Name      string
	MIMEType  string
	Text      string
	Tokens    int
	CreatedAt time.Time
}

// ChunkRecord is a chunk of a document, indexed for vector search.
type ChunkRecord struct {
	ID         string // UUID (same as the vector point ID)
	DocumentID string
	SessionID  string
	ChunkIndex int // Index within the document (starts at 0)
	Text       string
}
