package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// errNoInput is returned for an empty batch; it never reaches the provider.
var errNoInput = errors.New("no texts to embed")

// EmbeddingsClient calls an OpenAI-compatible /v1/embeddings endpoint.
// Chunks and questions are embedded with the same client so their
// vectors live in one space.
type EmbeddingsClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	client     *http.Client
}

// NewEmbeddingsClient creates an embeddings client. Every vector it returns
// has exactly dims components.
func NewEmbeddingsClient(baseURL, apiKey, model string, dims int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		Dimensions: dims,
		client:     http.DefaultClient,
	}
}

// EmbeddingsRequest is the /v1/embeddings payload.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData is one vector of an embeddings response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse is the /v1/embeddings response.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbedTexts returns one vector per text, in input order. A non-empty
// apiKey is used instead of the client's credential.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errNoInput
	}

	body, err := json.Marshal(EmbeddingsRequest{Model: c.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if apiKey == "" {
		apiKey = c.APIKey
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var decoded EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformedError(fmt.Errorf("failed to decode embeddings response: %w", err))
	}

	items := make([]indexedVector, len(decoded.Data))
	for i, d := range decoded.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		items[i] = indexedVector{index: d.Index, vec: vec}
	}
	return assemble(len(texts), c.Dimensions, items)
}

// Probe embeds a fixed string and checks the vector size, so a model that
// does not match the vector collection fails at startup instead of on the
// first upload.
func (c *EmbeddingsClient) Probe(ctx context.Context) error {
	return probe(ctx, c.EmbedTexts)
}

type indexedVector struct {
	index int
	vec   []float32
}

// assemble orders provider vectors by their index and checks count and size.
// Providers that omit the index (or repeat it) get response order.
func assemble(n, dims int, items []indexedVector) ([][]float32, error) {
	if len(items) != n {
		return nil, malformedError(fmt.Errorf("expected %d embeddings, got %d", n, len(items)))
	}

	out := make([][]float32, n)
	for i, it := range items {
		if len(it.vec) != dims {
			return nil, malformedError(fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(it.vec), dims))
		}
		pos := i
		if it.index >= 0 && it.index < n && out[it.index] == nil {
			pos = it.index
		}
		if out[pos] != nil {
			return nil, malformedError(fmt.Errorf("duplicate embedding index %d", it.index))
		}
		out[pos] = it.vec
	}
	return out, nil
}

func probe(ctx context.Context, embed func(ctx context.Context, texts []string, apiKey string) ([][]float32, error)) error {
	if _, err := embed(ctx, []string{"fundbridge"}, ""); err != nil {
		return fmt.Errorf("embedding probe failed: %w", err)
	}
	return nil
}
