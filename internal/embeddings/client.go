// Package embeddings provides vector embedding generation and the
// similarity math used by the retrieval engine.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/seralba/vitala-health-agent/internal/httpkit"
)

// Client generates embeddings via an OpenAI-compatible embeddings API.
//
// The same client (same backend, same model) must serve both
// knowledge-base construction and live query embedding, or similarity
// scores between the two are meaningless.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Config for the embedding client.
type Config struct {
	BaseURL string // API root (e.g., "https://api.openai.com")
	APIKey  string
	Model   string // Embedding model (e.g., "text-embedding-3-small")
}

// New creates an embedding client.
func New(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client: httpkit.NewClient(
			httpkit.WithTimeout(30 * time.Second),
		),
	}
}

// Model returns the embedding model identifier.
func (c *Client) Model() string {
	return c.model
}

// embedRequest is the embeddings API request.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the embeddings API response.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed creates an embedding for the given text. Failures wrap
// [httpkit.ErrServiceUnavailable].
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch creates embeddings for multiple texts in one request,
// returned in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := embedRequest{
		Model: c.model,
		Input: texts,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpkit.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("%w: embeddings backend returned status %d: %s", httpkit.ErrServiceUnavailable, resp.StatusCode, errBody)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", httpkit.ErrServiceUnavailable, err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", httpkit.ErrServiceUnavailable, len(texts), len(embedResp.Data))
	}

	results := make([][]float32, len(texts))
	for _, d := range embedResp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", httpkit.ErrServiceUnavailable, d.Index)
		}
		results[d.Index] = d.Embedding
	}
	return results, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths and zero-magnitude vectors score 0 rather than
// NaN, so degenerate inputs never poison a ranking.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
