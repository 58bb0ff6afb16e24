package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_indexer.go -package=mocks fundbridge-gpt/internal/service Indexer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks fundbridge-gpt/internal/service Retriever
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks fundbridge-gpt/internal/service DocumentService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/indexer"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/rag"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/staging"
	"fundbridge-gpt/internal/storage"
	"fundbridge-gpt/internal/tokens"
)

const docChatSystemPrompt = `You are a helpful assistant answering questions about the documents below. Answer only from their content; if the answer is not there, say so.
`

// Indexer stores a document with its chunks and vectors.
type Indexer interface {
	IndexDocument(ctx context.Context, doc *storage.DocumentRecord, apiKey string) (*indexer.Result, error)
}

// Retriever runs the conversational retrieval chain in two steps so the
// estimate is known before the answer is delegated.
type Retriever interface {
	Prepare(ctx context.Context, req rag.AskRequest) (*rag.Prepared, error)
	Answer(ctx context.Context, p *rag.Prepared, callback func(chunk string) error) (rag.AskResponse, error)
}

// AttachedDocument is the outcome of attaching one upload.
type AttachedDocument struct {
	session.Document
	Chunks     int                     `json:"chunks"`
	TokenStats indexer.ChunkTokenStats `json:"token_stats"`
	Estimate   tokens.Estimate         `json:"estimate"`
}

// DocChatRequest is a question about a session's documents.
type DocChatRequest struct {
	Question string
	APIKey   string
	Debug    bool
}

// DocChatResponse is an answer about a session's documents.
type DocChatResponse struct {
	Answer     string          `json:"answer"`
	Estimate   tokens.Estimate `json:"estimate"`
	References []rag.Reference `json:"references,omitempty"`
	Debug      *rag.DebugInfo  `json:"debug,omitempty"`
}

// DocumentService backs the chat-with-doc and ComplianceBot pages.
type DocumentService interface {
	// Attach validates, loads and indexes uploads into the session.
	Attach(ctx context.Context, sess *session.Session, uploads []*Upload, apiKey string, obs Observer) ([]AttachedDocument, error)
	// ChatWithDoc answers from the full text of every attached document.
	ChatWithDoc(ctx context.Context, sess *session.Session, req DocChatRequest, obs Observer, sink func(chunk string) error) (DocChatResponse, error)
	// Ask answers through retrieval over the attached documents' chunks.
	Ask(ctx context.Context, sess *session.Session, req DocChatRequest, obs Observer, sink func(chunk string) error) (DocChatResponse, error)
}

type documentService struct {
	validator *Validator
	stager    *staging.Stager
	budget    *tokens.Budget
	indexer   Indexer
	retriever Retriever
	llmClient LLMClient
	sessions  SessionManager
	now       func() time.Time
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	validator *Validator,
	stager *staging.Stager,
	budget *tokens.Budget,
	indexer Indexer,
	retriever Retriever,
	llmClient LLMClient,
	sessions SessionManager,
) DocumentService {
	return &documentService{
		validator: validator,
		stager:    stager,
		budget:    budget,
		indexer:   indexer,
		retriever: retriever,
		llmClient: llmClient,
		sessions:  sessions,
		now:       time.Now,
	}
}

// Attach persists each document as soon as it is indexed; a failure on a
// later upload leaves earlier ones attached.
func (s *documentService) Attach(ctx context.Context, sess *session.Session, uploads []*Upload, apiKey string, obs Observer) ([]AttachedDocument, error) {
	logger := contextutil.LoggerFromContext(ctx)
	t := newTracker(ctx, obs)

	t.enter(StageValidating)
	model, err := resolveModel(sess.Model())
	if err != nil {
		return nil, t.fail(err)
	}
	var first *Upload
	if len(uploads) > 0 {
		first = uploads[0]
	}
	if err := s.validator.Validate(ctx, first, apiKey); err != nil {
		return nil, t.fail(err)
	}
	for _, u := range uploads[1:] {
		if u == nil || u.Body == nil {
			return nil, t.fail(ErrMissingDocument)
		}
	}

	attached := make([]AttachedDocument, 0, len(uploads))
	for _, upload := range uploads {
		t.enter(StageStaging)
		loaded, err := stageAndLoad(ctx, s.stager, upload)
		if err != nil {
			return attached, t.fail(err)
		}

		t.enter(StageBudgeting)
		est := s.budget.Estimate(loaded.Text, model)
		t.estimate(est)

		t.enter(StageDelegating)
		record := &storage.DocumentRecord{
			ID:        uuid.New().String(),
			SessionID: sess.ID,
			Name:      upload.Name,
			MIMEType:  loaded.MIMEType,
			Text:      loaded.Text,
			Tokens:    est.Tokens,
			CreatedAt: s.now().UTC(),
		}
		res, err := s.indexer.IndexDocument(ctx, record, apiKey)
		if err != nil {
			logger.ErrorContext(ctx, "failed to index document", "name", upload.Name, "error", err)
			return attached, WrapError(err, "failed to index document")
		}

		doc := session.Document{
			ID:        record.ID,
			Name:      record.Name,
			MIMEType:  record.MIMEType,
			Text:      record.Text,
			Tokens:    record.Tokens,
			CreatedAt: record.CreatedAt,
		}
		sess.AddDocument(doc)
		attached = append(attached, AttachedDocument{
			Document:   doc,
			Chunks:     res.Chunks,
			TokenStats: res.TokenStats,
			Estimate:   est,
		})
		// An upload counts as activity for the idle sweeper.
		if err := s.sessions.Commit(ctx, sess); err != nil {
			logger.ErrorContext(ctx, "failed to commit session", "session_id", sess.ID, "error", err)
			return attached, WrapError(err, "failed to save session")
		}
		// Each document restarts the stage machine.
		t = newTracker(ctx, obs)
	}

	logger.InfoContext(ctx, "documents attached", "session_id", sess.ID, "count", len(attached))
	return attached, nil
}

func (s *documentService) ChatWithDoc(ctx context.Context, sess *session.Session, req DocChatRequest, obs Observer, sink func(chunk string) error) (DocChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	t := newTracker(ctx, obs)

	t.enter(StageValidating)
	model, docs, err := validateQuestion(sess, req)
	if err != nil {
		return DocChatResponse{}, t.fail(err)
	}

	t.enter(StageBudgeting)
	var system strings.Builder
	system.WriteString(docChatSystemPrompt)
	for _, d := range docs {
		fmt.Fprintf(&system, "\nDocument: %s\n%s\n", d.Name, d.Text)
	}
	history := sess.History()
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system.String()})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Question})

	est, err := s.budget.Check(promptText(messages), model)
	t.estimate(est)
	if err != nil {
		logger.WarnContext(ctx, "doc chat blocked by token budget", "tokens", est.Tokens, "ceiling", est.Ceiling)
		return DocChatResponse{Estimate: est}, t.fail(err)
	}

	t.enter(StageDelegating)
	answer, err := delegate(ctx, s.llmClient, messages, llm.ChatParams{
		Model:       model.ID,
		APIKey:      req.APIKey,
		Temperature: llm.Temperature(0),
	}, sink)
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer from documents", "error", err)
		return DocChatResponse{}, WrapError(err, "failed to get LLM response")
	}

	if err := s.commitTurn(ctx, sess, req.Question, answer); err != nil {
		return DocChatResponse{}, err
	}

	t.enter(StageRendering)
	logger.InfoContext(ctx, "doc chat answered", "session_id", sess.ID, "documents", len(docs), "tokens", est.Tokens)
	return DocChatResponse{Answer: answer, Estimate: est}, nil
}

func (s *documentService) Ask(ctx context.Context, sess *session.Session, req DocChatRequest, obs Observer, sink func(chunk string) error) (DocChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	t := newTracker(ctx, obs)

	t.enter(StageValidating)
	model, _, err := validateQuestion(sess, req)
	if err != nil {
		return DocChatResponse{}, t.fail(err)
	}

	t.enter(StageBudgeting)
	prepared, err := s.retriever.Prepare(ctx, rag.AskRequest{
		SessionID: sess.ID,
		Question:  req.Question,
		History:   sess.History(),
		Model:     model,
		APIKey:    req.APIKey,
		Debug:     req.Debug,
	})
	if err != nil {
		var be *BudgetError
		if errors.As(err, &be) {
			t.estimate(be.Estimate)
			return DocChatResponse{Estimate: be.Estimate}, t.fail(err)
		}
		logger.ErrorContext(ctx, "failed to prepare retrieval", "error", err)
		return DocChatResponse{}, WrapError(err, "failed to retrieve context")
	}
	t.estimate(prepared.Estimate())

	t.enter(StageDelegating)
	resp, err := s.retriever.Answer(ctx, prepared, sink)
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		return DocChatResponse{}, WrapError(err, "failed to get LLM response")
	}

	if err := s.commitTurn(ctx, sess, req.Question, resp.Answer); err != nil {
		return DocChatResponse{}, err
	}

	t.enter(StageRendering)
	return DocChatResponse{
		Answer:     resp.Answer,
		Estimate:   resp.Estimate,
		References: resp.References,
		Debug:      resp.Debug,
	}, nil
}

func (s *documentService) commitTurn(ctx context.Context, sess *session.Session, question, answer string) error {
	sess.Append(llm.RoleUser, question)
	sess.Append(llm.RoleAssistant, answer)
	if err := s.sessions.Commit(ctx, sess); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to commit session", "session_id", sess.ID, "error", err)
		return WrapError(err, "failed to save conversation")
	}
	return nil
}

func validateQuestion(sess *session.Session, req DocChatRequest) (model catalog.Model, docs []session.Document, err error) {
	if strings.TrimSpace(req.Question) == "" {
		return model, nil, &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	model, err = resolveModel(sess.Model())
	if err != nil {
		return model, nil, err
	}
	docs = sess.Documents()
	if len(docs) == 0 {
		return model, nil, ErrMissingDocument
	}
	return model, docs, nil
}
