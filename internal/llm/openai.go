package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to the OpenAI API through the go-openai SDK.
// It has the same method set as Client.
type OpenAIClient struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *openai.Client
}

// NewOpenAIClient creates a client for the given API root (without /v1).
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	c := &OpenAIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
	}
	c.client = c.sdk(apiKey)
	return c
}

func (c *OpenAIClient) sdk(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL + "/v1"
	}
	return openai.NewClientWithConfig(cfg)
}

// clientFor returns the SDK client for a per-call credential.
func (c *OpenAIClient) clientFor(apiKey string) *openai.Client {
	if apiKey == "" || apiKey == c.APIKey {
		return c.client
	}
	return c.sdk(apiKey)
}

func (c *OpenAIClient) request(messages []Message, params ChatParams) openai.ChatCompletionRequest {
	model := params.Model
	if model == "" {
		model = c.Model
	}

	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: params.MaxTokens,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
		if req.Temperature == 0 {
			// go-openai omits a zero temperature.
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	return req
}

// ChatWithMessages sends a chat completion request with a full message list.
func (c *OpenAIClient) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	resp, err := c.clientFor(params.APIKey).CreateChatCompletion(ctx, c.request(messages, params))
	if err != nil {
		return "", classifySDKError(err)
	}
	if len(resp.Choices) == 0 {
		return "", malformedError(errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChatWithMessages streams a chat completion, calling callback per fragment.
func (c *OpenAIClient) StreamChatWithMessages(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error {
	req := c.request(messages, params)
	req.Stream = true

	stream, err := c.clientFor(params.APIKey).CreateChatCompletionStream(ctx, req)
	if err != nil {
		return classifySDKError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			// The SDK reports [DONE] and a dropped connection alike, so
			// only a finish_reason marks the reply complete.
			return errStreamIncomplete()
		}
		if err != nil {
			return classifySDKError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			if err := callback(chunk); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
		if resp.Choices[0].FinishReason != "" {
			return nil
		}
	}
}

// ListModels returns the IDs of the models the credential can access.
func (c *OpenAIClient) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	list, err := c.clientFor(apiKey).ListModels(ctx)
	if err != nil {
		return nil, classifySDKError(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Ping checks that the provider is reachable and accepts the credential.
func (c *OpenAIClient) Ping(ctx context.Context, apiKey string) error {
	_, err := c.ListModels(ctx, apiKey)
	return err
}

// classifySDKError maps go-openai errors onto the provider taxonomy.
func classifySDKError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:       KindForStatus(apiErr.HTTPStatusCode),
			StatusCode: apiErr.HTTPStatusCode,
			Body:       apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Kind:       KindForStatus(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}
	return transportError(err)
}

// OpenAIEmbedder embeds texts through the go-openai SDK.
type OpenAIEmbedder struct {
	*OpenAIClient
	Dimensions int
}

// NewOpenAIEmbedder creates an embedder for the given embedding model.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	return &OpenAIEmbedder{OpenAIClient: NewOpenAIClient(baseURL, apiKey, model), Dimensions: dims}
}

// EmbedTexts returns one vector per text, in input order.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errNoInput
	}

	resp, err := e.clientFor(apiKey).CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.Model),
	})
	if err != nil {
		return nil, classifySDKError(err)
	}

	items := make([]indexedVector, len(resp.Data))
	for i, d := range resp.Data {
		items[i] = indexedVector{index: d.Index, vec: d.Embedding}
	}
	return assemble(len(texts), e.Dimensions, items)
}

// Probe checks that the embedding model produces vectors of the configured size.
func (e *OpenAIEmbedder) Probe(ctx context.Context) error {
	return probe(ctx, e.EmbedTexts)
}
