package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"semanticheck/internal/domain"
)

// Ollama defaults match the all-MiniLM-L6-v2 sentence model.
const (
	ollamaDefaultModel = "all-minilm"
	ollamaDefaultDims  = 384
)

var _ domain.EmbeddingProvider = (*OllamaProvider)(nil)

// OllamaProvider implements domain.EmbeddingProvider using Ollama's /api/embed.
type OllamaProvider struct {
	remote
}

// NewOllamaProvider creates an Ollama embedding provider.
// The base URL defaults to http://localhost:11434.
func NewOllamaProvider(opts ...Option) *OllamaProvider {
	r := newRemote("", ollamaDefaultModel, ollamaDefaultDims, "http://localhost:11434", opts)
	r.baseURL = strings.TrimRight(r.baseURL, "/")
	return &OllamaProvider{remote: r}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements domain.EmbeddingProvider.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := p.postJSON(ctx, p.baseURL+"/api/embed", ollamaEmbedRequest{Model: p.model, Input: texts}, nil)
	if err != nil {
		return nil, err
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrEmbeddingFailed, err)
	}
	if err := checkBatch(resp.Embeddings, len(texts), p.dims); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (p *OllamaProvider) Dimensions() int { return p.dims }

// Name implements domain.EmbeddingProvider.
func (p *OllamaProvider) Name() string { return "ollama" }
