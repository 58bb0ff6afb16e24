package rag

import (
	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/tokens"
)

// AskRequest represents a retrieval chat turn over a session's documents.
type AskRequest struct {
	// SessionID scopes retrieval to the session's chunks.
	SessionID string
	// Question is the user's follow-up question.
	Question string
	// History is the conversation so far, oldest first.
	History []llm.Message
	// Model is the catalog model that condenses and answers.
	Model catalog.Model
	// APIKey overrides the server credential when set.
	APIKey string
	// Debug returns retrieval details with the answer.
	Debug bool
}

// Reference represents a reference to a chunk that was used in the answer.
type Reference struct {
	// DocumentID is the attached document the chunk came from.
	DocumentID string `json:"document_id"`
	// DocumentName is the uploaded file name.
	DocumentName string `json:"document_name"`
	// ChunkIndex is the chunk index within the document.
	ChunkIndex int `json:"chunk_index"`
}

// AskResponse represents the response from a retrieval chat turn.
type AskResponse struct {
	// Answer is the generated answer from the LLM.
	Answer string `json:"answer"`
	// StandaloneQuestion is the condensed question used for retrieval.
	StandaloneQuestion string `json:"standalone_question"`
	// References are the chunks that were used to generate the answer.
	References []Reference `json:"references"`
	// Estimate is the token estimate of the answer prompt.
	Estimate tokens.Estimate `json:"estimate"`
	// Debug contains retrieval details when requested.
	Debug *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo contains detailed retrieval information for debugging and evaluation.
type DebugInfo struct {
	// RetrievedChunks contains every fetched candidate with scores and ranks.
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
}

// RetrievedChunk represents a fetched candidate with scoring information.
type RetrievedChunk struct {
	// ChunkID is the chunk identifier (also the vector point ID).
	ChunkID string `json:"chunk_id"`
	// DocumentName is the uploaded file name.
	DocumentName string `json:"document_name"`
	// ScoreVector is the vector similarity score.
	ScoreVector float64 `json:"score_vector"`
	// KeywordOverlap is the fraction of question keywords found in the chunk.
	KeywordOverlap float64 `json:"keyword_overlap"`
	// MatchedTerms lists those keywords.
	MatchedTerms []string `json:"matched_terms,omitempty"`
	// Selected reports whether MMR kept the chunk.
	Selected bool `json:"selected"`
	// Rank is the MMR selection order (1-based), 0 when not selected.
	Rank int `json:"rank"`
}
