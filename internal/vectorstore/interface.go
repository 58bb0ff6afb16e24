package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks fundbridge-gpt/internal/vectorstore VectorStore

import "context"

// Payload keys written by the indexer.
const (
	KeySessionID    = "session_id"
	KeyDocumentID   = "document_id"
	KeyDocumentName = "document_name"
	KeyChunkIndex   = "chunk_index"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Vec holds the stored vector so callers can re-rank candidates.
type SearchResult struct {
	PointID string
	Score   float32
	Vec     []float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Filters are exact matches on payload keys; supported values are
// strings, integers and booleans.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search with optional filters.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes every point matching the filters.
	DeleteByFilter(ctx context.Context, collection string, filters map[string]any) error
}

// CollectionManager creates and inspects collections.
type CollectionManager interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
}
