package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/storage"
	storage_mocks "fundbridge-gpt/internal/storage/mocks"
	"fundbridge-gpt/internal/tokens"
	"fundbridge-gpt/internal/vectorstore"
	vectorstore_mocks "fundbridge-gpt/internal/vectorstore/mocks"
)

type fakeEmbedder struct {
	texts []string
	err   error
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeChat struct {
	replies []string
	err     error
	calls   [][]llm.Message
	params  []llm.ChatParams
}

func (f *fakeChat) next() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeChat) ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	f.calls = append(f.calls, messages)
	f.params = append(f.params, params)
	return f.next()
}

func (f *fakeChat) StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(string) error) error {
	f.calls = append(f.calls, messages)
	f.params = append(f.params, params)
	r, err := f.next()
	if err != nil {
		return err
	}
	for _, w := range strings.SplitAfter(r, " ") {
		if err := callback(w); err != nil {
			return err
		}
	}
	return nil
}

type fixedCounter int

func (f fixedCounter) Count(string) int { return int(f) }

var testModel = catalog.Model{ID: "gpt-4", MaxTokens: 6000}

// candidates are four search hits; c1 duplicates c0, so MMR keeps c0 and c2.
func candidates() []vectorstore.SearchResult {
	meta := func(name string) map[string]any {
		return map[string]any{vectorstore.KeyDocumentName: name}
	}
	return []vectorstore.SearchResult{
		{PointID: "c0", Score: 0.99, Vec: []float32{1, 0.1}, Meta: meta("manual.pdf")},
		{PointID: "c1", Score: 0.98, Vec: []float32{1, 0.11}, Meta: meta("manual.pdf")},
		{PointID: "c2", Score: 0.60, Vec: []float32{0.5, -0.8}, Meta: meta("policy.txt")},
		{PointID: "c3", Score: 0.10, Vec: []float32{0, 1}, Meta: meta("policy.txt")},
	}
}

type engineFixture struct {
	engine   *Engine
	embedder *fakeEmbedder
	chat     *fakeChat
	vs       *vectorstore_mocks.MockVectorStore
	chunks   *storage_mocks.MockChunkStore
}

func newFixture(t *testing.T, count int, replies ...string) *engineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &engineFixture{
		embedder: &fakeEmbedder{},
		chat:     &fakeChat{replies: replies},
		vs:       vectorstore_mocks.NewMockVectorStore(ctrl),
		chunks:   storage_mocks.NewMockChunkStore(ctrl),
	}
	f.engine = NewEngine(f.embedder, f.vs, "docs", f.chunks, f.chat, tokens.NewBudget(fixedCounter(count)))
	return f
}

func (f *engineFixture) expectRetrieval() {
	f.vs.EXPECT().
		Search(gomock.Any(), "docs", []float32{1, 0}, FetchK, map[string]any{vectorstore.KeySessionID: "sess-1"}).
		Return(candidates(), nil)
	f.chunks.EXPECT().
		GetByIDs(gomock.Any(), []string{"c0", "c2"}).
		Return(map[string]storage.ChunkRecord{
			"c0": {ID: "c0", DocumentID: "d1", ChunkIndex: 3, Text: "Gifts above $100 must be reported."},
			"c2": {ID: "c2", DocumentID: "d2", ChunkIndex: 0, Text: "Trading windows close two weeks before earnings."},
		}, nil)
}

func TestEngine_Ask_NoHistory(t *testing.T) {
	f := newFixture(t, 100, "Report gifts above $100.")
	f.expectRetrieval()

	resp, err := f.engine.Ask(context.Background(), AskRequest{
		SessionID: "sess-1",
		Question:  "What is the gift limit?",
		Model:     testModel,
		APIKey:    "sk-user",
	}, nil)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.Answer != "Report gifts above $100." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.StandaloneQuestion != "What is the gift limit?" {
		t.Errorf("StandaloneQuestion = %q", resp.StandaloneQuestion)
	}
	if len(f.chat.calls) != 1 {
		t.Fatalf("LLM calls = %d, want 1 (no condense without history)", len(f.chat.calls))
	}
	system := f.chat.calls[0][0].Content
	if !strings.Contains(system, "Gifts above $100") || !strings.Contains(system, "Trading windows") {
		t.Errorf("answer prompt missing context: %q", system)
	}
	if p := f.chat.params[0]; p.Model != "gpt-4" || p.APIKey != "sk-user" || p.Temperature == nil || *p.Temperature != 0 {
		t.Errorf("ChatParams = %+v", p)
	}
	if len(resp.References) != 2 || resp.References[0].DocumentName != "manual.pdf" || resp.References[1].ChunkIndex != 0 {
		t.Errorf("References = %+v", resp.References)
	}
	if resp.Estimate.Tokens != 100 || resp.Estimate.Ceiling != 6000 {
		t.Errorf("Estimate = %+v", resp.Estimate)
	}
	if resp.Debug != nil {
		t.Error("Debug should be nil unless requested")
	}
}

func TestEngine_Ask_CondensesFollowUp(t *testing.T) {
	f := newFixture(t, 100, "  What is the gift reporting threshold?  ", "It is $100.")
	f.expectRetrieval()

	resp, err := f.engine.Ask(context.Background(), AskRequest{
		SessionID: "sess-1",
		Question:  "And the threshold?",
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "Tell me about gifts."},
			{Role: llm.RoleAssistant, Content: "Gifts must be reported."},
		},
		Model: testModel,
	}, nil)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(f.chat.calls) != 2 {
		t.Fatalf("LLM calls = %d, want 2", len(f.chat.calls))
	}
	condense := f.chat.calls[0][0].Content
	for _, want := range []string{"Human: Tell me about gifts.", "Assistant: Gifts must be reported.", "Follow Up Input: And the threshold?"} {
		if !strings.Contains(condense, want) {
			t.Errorf("condense prompt missing %q:\n%s", want, condense)
		}
	}
	if f.embedder.texts[0] != "What is the gift reporting threshold?" {
		t.Errorf("embedded %q, want the standalone question", f.embedder.texts[0])
	}
	if got := f.chat.calls[1][1].Content; got != "What is the gift reporting threshold?" {
		t.Errorf("answer question = %q", got)
	}
	if resp.Answer != "It is $100." {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestEngine_Ask_Streams(t *testing.T) {
	f := newFixture(t, 100, "one two three")
	f.expectRetrieval()

	var got []string
	resp, err := f.engine.Ask(context.Background(), AskRequest{SessionID: "sess-1", Question: "q", Model: testModel}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if strings.Join(got, "") != "one two three" || len(got) != 3 {
		t.Errorf("streamed %q", got)
	}
	if resp.Answer != "one two three" {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestEngine_Prepare_BudgetExceeded(t *testing.T) {
	f := newFixture(t, 6000)
	f.expectRetrieval()

	_, err := f.engine.Prepare(context.Background(), AskRequest{SessionID: "sess-1", Question: "q", Model: testModel})
	var be *tokens.BudgetError
	if !errors.As(err, &be) {
		t.Fatalf("Prepare() error = %v, want *tokens.BudgetError", err)
	}
	if be.Estimate.Tokens != 6000 || be.Estimate.Ceiling != 6000 {
		t.Errorf("Estimate = %+v", be.Estimate)
	}
	if len(f.chat.calls) != 0 {
		t.Error("no delegation expected when the budget is exceeded")
	}
}

func TestEngine_Ask_CondenseBudgetExceeded(t *testing.T) {
	f := newFixture(t, 9000)

	_, err := f.engine.Ask(context.Background(), AskRequest{
		SessionID: "sess-1",
		Question:  "q",
		History:   []llm.Message{{Role: llm.RoleUser, Content: "long"}},
		Model:     testModel,
	}, nil)
	if !errors.Is(err, tokens.ErrBudgetExceeded) {
		t.Fatalf("Ask() error = %v, want ErrBudgetExceeded", err)
	}
	if len(f.chat.calls) != 0 || len(f.embedder.texts) != 0 {
		t.Error("nothing should be delegated")
	}
}

func TestEngine_Ask_NoCandidates(t *testing.T) {
	f := newFixture(t, 100)
	f.vs.EXPECT().Search(gomock.Any(), "docs", gomock.Any(), FetchK, gomock.Any()).Return(nil, nil)
	f.chunks.EXPECT().GetByIDs(gomock.Any(), gomock.Len(0)).Return(map[string]storage.ChunkRecord{}, nil)

	var streamed string
	resp, err := f.engine.Ask(context.Background(), AskRequest{SessionID: "sess-1", Question: "q", Model: testModel}, func(chunk string) error {
		streamed += chunk
		return nil
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != NoContextAnswer || streamed != NoContextAnswer {
		t.Errorf("Answer = %q, streamed %q", resp.Answer, streamed)
	}
	if len(f.chat.calls) != 0 {
		t.Error("no delegation expected without context")
	}
	if len(resp.References) != 0 {
		t.Errorf("References = %+v", resp.References)
	}
}

func TestEngine_Ask_Errors(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		f := newFixture(t, 100)
		f.embedder.err = &llm.ProviderError{Kind: llm.ErrCredentialInvalid, StatusCode: 401}

		_, err := f.engine.Ask(context.Background(), AskRequest{SessionID: "sess-1", Question: "q", Model: testModel}, nil)
		if !errors.Is(err, llm.ErrCredentialInvalid) {
			t.Errorf("Ask() error = %v, want ErrCredentialInvalid", err)
		}
	})

	t.Run("search failure", func(t *testing.T) {
		f := newFixture(t, 100)
		f.vs.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("qdrant down"))

		if _, err := f.engine.Ask(context.Background(), AskRequest{SessionID: "sess-1", Question: "q", Model: testModel}, nil); err == nil {
			t.Error("Ask() expected error")
		}
	})

	t.Run("provider failure on answer", func(t *testing.T) {
		f := newFixture(t, 100)
		f.expectRetrieval()
		f.chat.err = &llm.ProviderError{Kind: llm.ErrRateLimited, StatusCode: 429}

		_, err := f.engine.Ask(context.Background(), AskRequest{SessionID: "sess-1", Question: "q", Model: testModel}, nil)
		if !errors.Is(err, llm.ErrRateLimited) {
			t.Errorf("Ask() error = %v, want ErrRateLimited", err)
		}
	})
}

func TestEngine_Ask_Debug(t *testing.T) {
	f := newFixture(t, 100, "answer")
	f.expectRetrieval()

	resp, err := f.engine.Ask(context.Background(), AskRequest{SessionID: "sess-1", Question: "gifts limit", Model: testModel, Debug: true}, nil)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Debug == nil || len(resp.Debug.RetrievedChunks) != 4 {
		t.Fatalf("Debug = %+v", resp.Debug)
	}
	rc := resp.Debug.RetrievedChunks
	if !rc[0].Selected || rc[0].Rank != 1 || rc[1].Selected || !rc[2].Selected || rc[2].Rank != 2 {
		t.Errorf("selection = %+v", rc)
	}
	if rc[0].KeywordOverlap <= 0 || len(rc[0].MatchedTerms) == 0 {
		t.Errorf("c0 overlap = %f %v, want a match", rc[0].KeywordOverlap, rc[0].MatchedTerms)
	}
}
