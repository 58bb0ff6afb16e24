package rag

import (
	"context"
	"fmt"
	"strings"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/storage"
	"fundbridge-gpt/internal/tokens"
	"fundbridge-gpt/internal/vectorstore"
)

// Retrieval parameters.
const (
	FetchK    = 4   // candidates pulled from the vector store
	K         = 2   // chunks kept after MMR
	MMRLambda = 0.5 // relevance vs diversity
)

// NoContextAnswer is returned when the session has no relevant chunks.
const NoContextAnswer = "I couldn't find any relevant information in the attached documents to answer this question."

const condensePrompt = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

const answerSystemPrompt = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string, apiKey string) ([][]float32, error)
}

// ChatClient is the part of the LLM client the engine delegates to.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// Engine answers follow-up questions over a session's indexed chunks.
type Engine struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunkRepo   storage.ChunkStore
	llmClient   ChatClient
	budget      *tokens.Budget
}

// NewEngine creates a new retrieval engine.
func NewEngine(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunkRepo storage.ChunkStore,
	llmClient ChatClient,
	budget *tokens.Budget,
) *Engine {
	return &Engine{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunkRepo:   chunkRepo,
		llmClient:   llmClient,
		budget:      budget,
	}
}

// Prepared is a retrieval turn whose answer prompt has passed the budget.
type Prepared struct {
	req        AskRequest
	standalone string
	messages   []llm.Message
	references []Reference
	estimate   tokens.Estimate
	debug      *DebugInfo
}

// Estimate returns the token estimate of the answer prompt.
func (p *Prepared) Estimate() tokens.Estimate {
	return p.estimate
}

// StandaloneQuestion returns the question used for retrieval.
func (p *Prepared) StandaloneQuestion() string {
	return p.standalone
}

// Ask runs Prepare and Answer. A non-nil callback streams the answer.
func (e *Engine) Ask(ctx context.Context, req AskRequest, callback func(chunk string) error) (AskResponse, error) {
	p, err := e.Prepare(ctx, req)
	if err != nil {
		return AskResponse{}, err
	}
	return e.Answer(ctx, p, callback)
}

// Prepare condenses the question, retrieves chunks with MMR and assembles the
// answer prompt. Returns a *tokens.BudgetError when a prompt is too large.
func (e *Engine) Prepare(ctx context.Context, req AskRequest) (*Prepared, error) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "retrieval query started", "session_id", req.SessionID, "history", len(req.History))

	standalone, err := e.condense(ctx, req)
	if err != nil {
		return nil, err
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, []string{standalone}, req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for question: %w", llm.ErrMalformedResponse)
	}
	query := embeddings[0]

	candidates, err := e.vectorStore.Search(ctx, e.collection, query, FetchK, map[string]any{
		vectorstore.KeySessionID: req.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	logger.DebugContext(ctx, "vector search completed", "candidates", len(candidates))

	vecs := make([][]float32, len(candidates))
	for i, c := range candidates {
		vecs[i] = c.Vec
	}
	picked := maxMarginalRelevance(query, vecs, K, MMRLambda)

	ids := make([]string, len(picked))
	for i, idx := range picked {
		ids[i] = candidates[idx].PointID
	}
	chunks, err := e.chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chunk texts: %w", err)
	}

	p := &Prepared{req: req, standalone: standalone, references: []Reference{}}
	var contextParts []string
	for _, idx := range picked {
		c := candidates[idx]
		chunk, ok := chunks[c.PointID]
		if !ok {
			logger.WarnContext(ctx, "chunk missing from database", "chunk_id", c.PointID)
			continue
		}
		contextParts = append(contextParts, chunk.Text)
		name, _ := c.Meta[vectorstore.KeyDocumentName].(string)
		p.references = append(p.references, Reference{
			DocumentID:   chunk.DocumentID,
			DocumentName: name,
			ChunkIndex:   chunk.ChunkIndex,
		})
	}

	if req.Debug {
		p.debug = buildDebugInfo(standalone, candidates, picked, chunks)
	}

	if len(contextParts) == 0 {
		logger.InfoContext(ctx, "no relevant chunks found", "session_id", req.SessionID)
		return p, nil
	}

	p.messages = []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(answerSystemPrompt, strings.Join(contextParts, "\n\n"))},
		{Role: llm.RoleUser, Content: standalone},
	}
	p.estimate, err = e.budget.Check(promptText(p.messages), req.Model)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Answer delegates the prepared prompt. A non-nil callback receives streamed
// fragments; the full answer is returned either way.
func (e *Engine) Answer(ctx context.Context, p *Prepared, callback func(chunk string) error) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	resp := AskResponse{
		StandaloneQuestion: p.standalone,
		References:         p.references,
		Estimate:           p.estimate,
		Debug:              p.debug,
	}

	if len(p.messages) == 0 {
		resp.Answer = NoContextAnswer
		if callback != nil {
			if err := callback(NoContextAnswer); err != nil {
				return AskResponse{}, fmt.Errorf("callback error: %w", err)
			}
		}
		return resp, nil
	}

	params := llm.ChatParams{
		Model:       p.req.Model.ID,
		APIKey:      p.req.APIKey,
		Temperature: llm.Temperature(0),
	}

	if callback == nil {
		answer, err := e.llmClient.ChatWithMessages(ctx, p.messages, params)
		if err != nil {
			return AskResponse{}, fmt.Errorf("failed to get LLM response: %w", err)
		}
		resp.Answer = answer
	} else {
		var b strings.Builder
		err := e.llmClient.StreamChatWithMessages(ctx, p.messages, params, func(chunk string) error {
			b.WriteString(chunk)
			return callback(chunk)
		})
		if err != nil {
			return AskResponse{}, fmt.Errorf("failed to stream LLM response: %w", err)
		}
		resp.Answer = b.String()
	}

	logger.InfoContext(ctx, "retrieval query completed",
		"session_id", p.req.SessionID,
		"chunks_used", len(p.references),
		"answer_length", len(resp.Answer),
	)
	return resp, nil
}

// condense rewrites a follow-up into a standalone question. Without history
// the question is used as is.
func (e *Engine) condense(ctx context.Context, req AskRequest) (string, error) {
	if len(req.History) == 0 {
		return req.Question, nil
	}

	var history strings.Builder
	for _, m := range req.History {
		switch m.Role {
		case llm.RoleUser:
			history.WriteString("Human: ")
		case llm.RoleAssistant:
			history.WriteString("Assistant: ")
		default:
			continue
		}
		history.WriteString(m.Content)
		history.WriteString("\n")
	}

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(condensePrompt, history.String(), req.Question)},
	}
	if _, err := e.budget.Check(promptText(messages), req.Model); err != nil {
		return "", err
	}

	standalone, err := e.llmClient.ChatWithMessages(ctx, messages, llm.ChatParams{
		Model:       req.Model.ID,
		APIKey:      req.APIKey,
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return "", fmt.Errorf("failed to condense question: %w", err)
	}

	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return req.Question, nil
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "condensed question", "standalone", standalone)
	return standalone, nil
}

// promptText is the text a prompt is budgeted on.
func promptText(messages []llm.Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}

func buildDebugInfo(question string, candidates []vectorstore.SearchResult, picked []int, chunks map[string]storage.ChunkRecord) *DebugInfo {
	rank := make(map[int]int, len(picked))
	for i, idx := range picked {
		rank[idx] = i + 1
	}

	info := &DebugInfo{RetrievedChunks: make([]RetrievedChunk, 0, len(candidates))}
	for i, c := range candidates {
		name, _ := c.Meta[vectorstore.KeyDocumentName].(string)
		rc := RetrievedChunk{
			ChunkID:      c.PointID,
			DocumentName: name,
			ScoreVector:  float64(c.Score),
			Selected:     rank[i] > 0,
			Rank:         rank[i],
		}
		if chunk, ok := chunks[c.PointID]; ok {
			o := keywordOverlap(question, chunk.Text, name)
			rc.KeywordOverlap = o.Score
			rc.MatchedTerms = o.Terms
		}
		info.RetrievedChunks = append(info.RetrievedChunks, rc)
	}
	return info
}
