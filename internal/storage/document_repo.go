package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks fundbridge-gpt/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// InsertWithChunks stores a document and its chunks in one transaction.
	InsertWithChunks(ctx context.Context, doc *DocumentRecord, chunks []ChunkRecord) error
	// Delete removes a document and its chunks.
	Delete(ctx context.Context, id string) error
	// ListBySession returns a session's documents in attach order.
	ListBySession(ctx context.Context, sessionID string) ([]DocumentRecord, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// InsertWithChunks stores a document and its chunks in one transaction.
// The session must exist.
func (r *DocumentRepo) InsertWithChunks(ctx context.Context, doc *DocumentRecord, chunks []ChunkRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO documents (id, session_id, name, mime_type, text, tokens, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.SessionID, doc.Name, doc.MIMEType, doc.Text, doc.Tokens, doc.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, document_id, session_id, chunk_index, text) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		if _, err = stmt.ExecContext(ctx, c.ID, doc.ID, doc.SessionID, c.ChunkIndex, c.Text); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// Delete removes a document and, by cascade, its chunks.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ListBySession returns a session's documents ordered by attach time.
// Returns an empty slice if there are none.
func (r *DocumentRepo) ListBySession(ctx context.Context, sessionID string) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, name, mime_type, text, tokens, created_at FROM documents WHERE session_id = ? ORDER BY created_at, rowid",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []DocumentRecord{}
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Name, &d.MIMEType, &d.Text, &d.Tokens, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// GetByID returns a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	var d DocumentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, session_id, name, mime_type, text, tokens, created_at FROM documents WHERE id = ?",
		id,
	).Scan(&d.ID, &d.SessionID, &d.Name, &d.MIMEType, &d.Text, &d.Tokens, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &d, nil
}
