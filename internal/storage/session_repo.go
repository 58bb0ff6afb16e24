package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks fundbridge-gpt/internal/storage SessionStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionStore defines the interface for session storage operations.
type SessionStore interface {
	// Create inserts a new session. ID, Model and timestamps must be set.
	Create(ctx context.Context, s *SessionRecord) error
	// Get returns a session by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (*SessionRecord, error)
	// Commit atomically appends messages, stores the model and bumps updated_at.
	Commit(ctx context.Context, id, model string, msgs []MessageRecord, now time.Time) error
	// Delete removes a session and, by cascade, its messages, documents and chunks.
	Delete(ctx context.Context, id string) error
	// ListIdle returns the IDs of sessions not updated since before.
	ListIdle(ctx context.Context, before time.Time) ([]string, error)
	// ListMessages returns the transcript of a session in order.
	ListMessages(ctx context.Context, id string) ([]MessageRecord, error)
}

// SessionRepo provides methods for session operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a new session.
func (r *SessionRepo) Create(ctx context.Context, s *SessionRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, model, created_at, updated_at) VALUES (?, ?, ?, ?)",
		s.ID, s.Model, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get returns a session by ID. Returns ErrNotFound if not found.
func (r *SessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	var s SessionRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, model, created_at, updated_at FROM sessions WHERE id = ?",
		id,
	).Scan(&s.ID, &s.Model, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &s, nil
}

// Commit atomically appends msgs after the existing transcript, stores the
// model and bumps updated_at. Returns ErrNotFound if the session is gone.
func (r *SessionRepo) Commit(ctx context.Context, id, model string, msgs []MessageRecord, now time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET model = ?, updated_at = ? WHERE id = ?",
		model, now.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	var next int
	if err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM messages WHERE session_id = ?", id,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read transcript position: %w", err)
	}

	for i, m := range msgs {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO messages (session_id, position, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			id, next+i, m.Role, m.Content, now.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Delete removes a session and everything attached to it.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIdle returns the IDs of sessions whose updated_at is before the cutoff.
func (r *SessionRepo) ListIdle(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM sessions WHERE updated_at < ? ORDER BY updated_at",
		before.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// ListMessages returns the transcript of a session ordered by position.
func (r *SessionRepo) ListMessages(ctx context.Context, id string) ([]MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT session_id, position, role, content, created_at FROM messages WHERE session_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var msgs []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.SessionID, &m.Position, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return msgs, nil
}
