package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"semanticheck/internal/domain"
)

var _ domain.EmbeddingProvider = (*OpenAIProvider)(nil)

// OpenAIProvider implements domain.EmbeddingProvider using the OpenAI
// embeddings API.
type OpenAIProvider struct {
	remote
}

// NewOpenAIProvider creates an OpenAI embedding provider.
func NewOpenAIProvider(apiKey string, opts ...Option) *OpenAIProvider {
	r := newRemote(apiKey, "text-embedding-3-small", 1536, "https://api.openai.com/v1", opts)
	r.baseURL = strings.TrimRight(r.baseURL, "/")
	return &OpenAIProvider{remote: r}
}

type openaiEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements domain.EmbeddingProvider.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openaiEmbedRequest{Input: texts, Model: p.model}
	if strings.HasPrefix(p.model, "text-embedding-3") {
		req.Dimensions = p.dims
	}

	body, err := p.postJSON(ctx, p.baseURL+"/embeddings", req, map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var resp openaiEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrEmbeddingFailed, err)
	}

	// Results may arrive out of order.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vecs[i] = d.Embedding
	}
	if err := checkBatch(vecs, len(texts), p.dims); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (p *OpenAIProvider) Dimensions() int { return p.dims }

// Name implements domain.EmbeddingProvider.
func (p *OpenAIProvider) Name() string { return "openai" }
