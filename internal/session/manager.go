package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/storage"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// VectorCleaner removes the vector points belonging to a session.
type VectorCleaner interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// Manager loads, commits and ends sessions.
type Manager struct {
	sessions  storage.SessionStore
	documents storage.DocumentStore
	vectors   VectorCleaner
	ttl       time.Duration
	now       func() time.Time
}

// NewManager creates a session manager. Sessions idle for longer than ttl
// are ended by Sweep.
func NewManager(sessions storage.SessionStore, documents storage.DocumentStore, vectors VectorCleaner, ttl time.Duration) *Manager {
	return &Manager{
		sessions:  sessions,
		documents: documents,
		vectors:   vectors,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a new session with the given model.
func (m *Manager) Create(ctx context.Context, model string) (*Session, error) {
	now := m.now()
	rec := &storage.SessionRecord{
		ID:        uuid.New().String(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.sessions.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session created", "session_id", rec.ID, "model", model)
	return New(rec.ID, model, now), nil
}

// Load reads a session with its transcript and documents.
// Returns ErrNotFound if the session does not exist.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	rec, err := m.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	msgs, err := m.sessions.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	docs, err := m.documents.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	s := &Session{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		model:     rec.Model,
		history:   make([]llm.Message, 0, len(msgs)),
		documents: make([]Document, 0, len(docs)),
	}
	for _, msg := range msgs {
		s.history = append(s.history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	for _, d := range docs {
		s.documents = append(s.documents, Document{
			ID:        d.ID,
			Name:      d.Name,
			MIMEType:  d.MIMEType,
			Text:      d.Text,
			Tokens:    d.Tokens,
			CreatedAt: d.CreatedAt,
		})
	}
	return s, nil
}

// Commit persists the pending turns and model change in one transaction.
// On failure the session keeps its pending state.
func (m *Manager) Commit(ctx context.Context, s *Session) error {
	if !s.Dirty() {
		return nil
	}

	now := m.now()
	recs := make([]storage.MessageRecord, 0, len(s.pending))
	for _, msg := range s.pending {
		recs = append(recs, storage.MessageRecord{SessionID: s.ID, Role: msg.Role, Content: msg.Content})
	}

	if err := m.sessions.Commit(ctx, s.ID, s.model, recs, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
		}
		return fmt.Errorf("failed to commit session: %w", err)
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "session committed", "session_id", s.ID, "messages", len(recs))
	s.markCommitted(now)
	return nil
}

// End deletes every row and vector point of a session.
// Vectors go first so a failed cleanup leaves the session for the sweeper to retry.
func (m *Manager) End(ctx context.Context, id string) error {
	if m.vectors != nil {
		if err := m.vectors.DeleteSession(ctx, id); err != nil {
			return fmt.Errorf("failed to delete session vectors: %w", err)
		}
	}

	if err := m.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session ended", "session_id", id)
	return nil
}

// Sweep ends every session idle for longer than the TTL and returns how
// many were ended. Failures are collected and do not stop the sweep.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	ids, err := m.sessions.ListIdle(ctx, m.now().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to list idle sessions: %w", err)
	}

	logger := contextutil.LoggerFromContext(ctx)
	var errs []error
	ended := 0
	for _, id := range ids {
		if err := m.End(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				// Ended concurrently.
				continue
			}
			logger.WarnContext(ctx, "failed to end idle session", "session_id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		ended++
	}
	return ended, errors.Join(errs...)
}

// Run sweeps on every tick until ctx is canceled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	logger := contextutil.LoggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "session sweep failed", "error", err)
			}
			if n > 0 {
				logger.InfoContext(ctx, "expired sessions ended", "count", n)
			}
		}
	}
}
