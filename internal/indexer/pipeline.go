package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/storage"
	"fundbridge-gpt/internal/tokens"
	"fundbridge-gpt/internal/vectorstore"
)

// embedBatchSize bounds the number of inputs per embeddings request.
const embedBatchSize = 64

// ErrNoChunks is returned when a document produces no chunks.
var ErrNoChunks = errors.New("document produced no chunks")

// Embedder turns texts into vectors. The API key overrides the server credential when set.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string, apiKey string) ([][]float32, error)
}

// Pipeline indexes uploaded documents into SQLite and the vector store.
type Pipeline struct {
	documents   storage.DocumentStore
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	splitter    *RecursiveSplitter
	counter     tokens.Counter
}

// NewPipeline creates a new indexing pipeline with the default splitter.
func NewPipeline(
	documents storage.DocumentStore,
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	counter tokens.Counter,
) *Pipeline {
	splitter, _ := NewRecursiveSplitter(DefaultChunkSize, DefaultChunkOverlap)
	return &Pipeline{
		documents:   documents,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		splitter:    splitter,
		counter:     counter,
	}
}

// IndexDocument splits a document, embeds its chunks and stores the document,
// its chunks and their vectors. doc.ID and doc.SessionID must be set.
// Nothing is left behind on failure.
func (p *Pipeline) IndexDocument(ctx context.Context, doc *storage.DocumentRecord, apiKey string) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	chunks := p.splitter.Split(doc.Text)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embed(ctx, texts, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	records := make([]storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		chunkID := uuid.New().String()

		records[i] = storage.ChunkRecord{
			ID:         chunkID,
			DocumentID: doc.ID,
			SessionID:  doc.SessionID,
			ChunkIndex: chunk.Index,
			Text:       chunk.Text,
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				vectorstore.KeySessionID:    doc.SessionID,
				vectorstore.KeyDocumentID:   doc.ID,
				vectorstore.KeyDocumentName: doc.Name,
				vectorstore.KeyChunkIndex:   chunk.Index,
			},
		}
	}

	if err := p.documents.InsertWithChunks(ctx, doc, records); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		if delErr := p.documents.Delete(ctx, doc.ID); delErr != nil {
			logger.ErrorContext(ctx, "failed to remove document after vector upsert failure", "document_id", doc.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	result := &Result{
		DocumentID: doc.ID,
		Chunks:     len(chunks),
		TokenStats: chunkTokenStats(p.counter, chunks),
	}
	logger.InfoContext(ctx, "indexed document",
		"document_id", doc.ID,
		"name", doc.Name,
		"chunks", result.Chunks,
		"max_chunk_tokens", result.TokenStats.Max,
	)
	return result, nil
}

// embed requests embeddings in batches and checks the count.
func (p *Pipeline) embed(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vecs, err := p.embedder.EmbedTexts(ctx, texts[start:end], apiKey)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(out))
	}
	return out, nil
}

// DeleteSession removes every vector point of a session.
func (p *Pipeline) DeleteSession(ctx context.Context, sessionID string) error {
	if err := p.vectorStore.DeleteByFilter(ctx, p.collection, map[string]any{
		vectorstore.KeySessionID: sessionID,
	}); err != nil {
		return fmt.Errorf("failed to delete session vectors: %w", err)
	}
	return nil
}
