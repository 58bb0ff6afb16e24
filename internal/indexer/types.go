package indexer

// Chunk is a piece of document text sized for embedding.
type Chunk struct {
	Index int    // Chunk index within the document (starts at 0)
	Text  string // Chunk text content
}

// Result describes one indexed document.
type Result struct {
	DocumentID string          `json:"document_id"`
	Chunks     int             `json:"chunks"`
	TokenStats ChunkTokenStats `json:"chunk_token_stats"`
}
