package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDocumentRepo_InsertWithChunks(t *testing.T) {
	db := openTestDB(t)
	createSession(t, NewSessionRepo(db), "s1", time.Now())
	repo := NewDocumentRepo(db)
	chunkRepo := NewChunkRepo(db)
	ctx := context.Background()

	doc := &DocumentRecord{
		ID:        "d1",
		SessionID: "s1",
		Name:      "q3.pdf",
		MIMEType:  "application/pdf",
		Text:      "Revenue grew.",
		Tokens:    3,
		CreatedAt: time.Now(),
	}
	chunks := []ChunkRecord{
		{ID: "c0", ChunkIndex: 0, Text: "Revenue"},
		{ID: "c1", ChunkIndex: 1, Text: "grew."},
	}

	if err := repo.InsertWithChunks(ctx, doc, chunks); err != nil {
		t.Fatalf("InsertWithChunks() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "q3.pdf" || got.Tokens != 3 || got.SessionID != "s1" {
		t.Errorf("GetByID() = %+v", got)
	}

	c, err := chunkRepo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByID(chunk) error = %v", err)
	}
	if c.DocumentID != "d1" || c.SessionID != "s1" || c.ChunkIndex != 1 {
		t.Errorf("chunk = %+v, want document d1, session s1, index 1", c)
	}
}

func TestDocumentRepo_InsertWithChunks_RollsBack(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		chunks    []ChunkRecord
	}{
		{
			name:      "unknown session",
			sessionID: "ghost",
			chunks:    []ChunkRecord{{ID: "c0", Text: "a"}},
		},
		{
			name:      "duplicate chunk id",
			sessionID: "s1",
			chunks:    []ChunkRecord{{ID: "c0", Text: "a"}, {ID: "c0", ChunkIndex: 1, Text: "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			createSession(t, NewSessionRepo(db), "s1", time.Now())
			repo := NewDocumentRepo(db)

			doc := &DocumentRecord{ID: "d1", SessionID: tt.sessionID, Name: "x.txt", MIMEType: "text/plain", Text: "a", CreatedAt: time.Now()}
			if err := repo.InsertWithChunks(context.Background(), doc, tt.chunks); err == nil {
				t.Fatal("InsertWithChunks() expected error")
			}

			for _, table := range []string{"documents", "chunks"} {
				var count int
				if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
					t.Fatal(err)
				}
				if count != 0 {
					t.Errorf("%s count = %d, want 0 after rollback", table, count)
				}
			}
		})
	}
}

func TestDocumentRepo_ListBySessionAndDelete(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionRepo(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createSession(t, sessions, "s1", base)
	createSession(t, sessions, "s2", base)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	insert := func(id, session string, at time.Time) {
		t.Helper()
		doc := &DocumentRecord{ID: id, SessionID: session, Name: id + ".txt", MIMEType: "text/plain", Text: id, CreatedAt: at}
		if err := repo.InsertWithChunks(ctx, doc, []ChunkRecord{{ID: id + "-c0", Text: id}}); err != nil {
			t.Fatalf("InsertWithChunks(%s) error = %v", id, err)
		}
	}
	insert("b", "s1", base.Add(time.Second))
	insert("a", "s1", base)
	insert("z", "s2", base)

	docs, err := repo.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("ListBySession() = %+v, want [a b]", docs)
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := NewChunkRepo(db).GetByID(ctx, "a-c0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("chunk survived document delete: %v", err)
	}

	empty, err := repo.ListBySession(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListBySession(nobody) = %v, want empty slice", empty)
	}
}
