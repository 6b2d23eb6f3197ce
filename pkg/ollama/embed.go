// Package ollama provides an Ollama-backed text embedder. Responses are
// memoized in process, since fact texts are embedded repeatedly across
// index rebuilds.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// EmbedClient calls Ollama's embeddings HTTP API.
type EmbedClient struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewEmbedClient creates an Ollama embedding client. dimension must match
// the embedding size of the chosen model; 0 adopts the size of the first
// response.
func NewEmbedClient(baseURL, model string, dimension int) *EmbedClient {
	return &EmbedClient{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client:    &http.Client{},
		cache:     make(map[string][]float32),
	}
}

// ModelID returns the Ollama model name.
func (c *EmbedClient) ModelID() string { return c.model }

// Dimension returns the embedding size.
func (c *EmbedClient) Dimension() int { return c.dimension }

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding for text. Callers receive a private copy and
// may mutate it.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	cached, ok := c.cache[text]
	c.mu.RUnlock()
	if ok {
		return append([]float32(nil), cached...), nil
	}

	body, _ := json.Marshal(embedReq{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d", resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}

	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(out)
	}
	dim := c.dimension
	if len(out) == dim {
		c.cache[text] = out
	}
	c.mu.Unlock()

	if len(out) != dim {
		return nil, fmt.Errorf("ollama embed: got %d dimensions, want %d", len(out), dim)
	}
	return append([]float32(nil), out...), nil
}
