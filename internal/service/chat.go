package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks fundbridge-gpt/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_manager.go -package=mocks fundbridge-gpt/internal/service SessionManager
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService fundbridge-gpt/internal/service ChatService

import (
	"context"

	"fundbridge-gpt/internal/contextutil"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/tokens"
)

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// ChatWithMessages sends a conversation and returns the reply.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	// StreamChatWithMessages sends a conversation and streams the reply via callback.
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
	// Ping checks that the provider is reachable with apiKey.
	Ping(ctx context.Context, apiKey string) error
}

// SessionManager loads and persists sessions.
type SessionManager interface {
	Create(ctx context.Context, model string) (*session.Session, error)
	Load(ctx context.Context, id string) (*session.Session, error)
	Commit(ctx context.Context, s *session.Session) error
	End(ctx context.Context, id string) error
}

// chatSystemPrompt frames the basic chatbot conversation.
const chatSystemPrompt = "The following is a friendly conversation between a human and an AI. The AI is talkative and provides lots of specific details from its context. If the AI does not know the answer to a question, it truthfully says it does not know."

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Message string `validate:"required"`
	APIKey  string
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply    string
	Estimate tokens.Estimate
}

// ChatService provides the basic chatbot over a session's history.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, sess *session.Session, req ChatRequest) (ChatResponse, error)
	// StreamChat processes a chat request and streams the response via callback.
	StreamChat(ctx context.Context, sess *session.Session, req ChatRequest, obs Observer, callback func(chunk string) error) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	llmClient LLMClient
	sessions  SessionManager
	budget    *tokens.Budget
}

// NewChatService creates a new ChatService.
func NewChatService(llmClient LLMClient, sessions SessionManager, budget *tokens.Budget) ChatService {
	return &chatService{
		llmClient: llmClient,
		sessions:  sessions,
		budget:    budget,
	}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, sess *session.Session, req ChatRequest) (ChatResponse, error) {
	return s.chat(ctx, sess, req, nil, nil)
}

// StreamChat processes a chat request and streams the response.
func (s *chatService) StreamChat(ctx context.Context, sess *session.Session, req ChatRequest, obs Observer, callback func(chunk string) error) (ChatResponse, error) {
	return s.chat(ctx, sess, req, obs, callback)
}

func (s *chatService) chat(ctx context.Context, sess *session.Session, req ChatRequest, obs Observer, sink func(chunk string) error) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	t := newTracker(ctx, obs)

	t.enter(StageValidating)
	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, t.fail(&ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		})
	}
	model, err := resolveModel(sess.Model())
	if err != nil {
		return ChatResponse{}, t.fail(err)
	}

	t.enter(StageBudgeting)
	messages := make([]llm.Message, 0, len(sess.History())+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	messages = append(messages, sess.History()...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Message})

	est, err := s.budget.Check(promptText(messages), model)
	t.estimate(est)
	if err != nil {
		logger.WarnContext(ctx, "chat blocked by token budget", "tokens", est.Tokens, "ceiling", est.Ceiling)
		return ChatResponse{Estimate: est}, t.fail(err)
	}

	t.enter(StageDelegating)
	reply, err := delegate(ctx, s.llmClient, messages, llm.ChatParams{
		Model:       model.ID,
		APIKey:      req.APIKey,
		Temperature: llm.Temperature(0),
	}, sink)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return ChatResponse{}, WrapError(err, "failed to get LLM response")
	}

	sess.Append(llm.RoleUser, req.Message)
	sess.Append(llm.RoleAssistant, reply)
	if err := s.sessions.Commit(ctx, sess); err != nil {
		logger.ErrorContext(ctx, "failed to commit session", "session_id", sess.ID, "error", err)
		return ChatResponse{}, WrapError(err, "failed to save conversation")
	}

	t.enter(StageRendering)
	logger.InfoContext(ctx, "chat request processed successfully",
		"session_id", sess.ID,
		"message_length", len(req.Message),
		"reply_length", len(reply),
	)
	return ChatResponse{Reply: reply, Estimate: est}, nil
}
