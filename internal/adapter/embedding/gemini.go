package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"semanticheck/internal/domain"
)

var _ domain.EmbeddingProvider = (*GeminiProvider)(nil)

// GeminiProvider implements domain.EmbeddingProvider using the Gemini
// batchEmbedContents API.
type GeminiProvider struct {
	remote
}

// NewGeminiProvider creates a Gemini embedding provider.
func NewGeminiProvider(apiKey string, opts ...Option) *GeminiProvider {
	r := newRemote(apiKey, "text-embedding-004", 768, "https://generativelanguage.googleapis.com", opts)
	r.baseURL = strings.TrimRight(r.baseURL, "/")
	return &GeminiProvider{remote: r}
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedContentRequest `json:"requests"`
}

type geminiEmbedContentRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiContent struct {
	Parts []geminiTextPart `json:"parts"`
}

type geminiTextPart struct {
	Text string `json:"text"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed implements domain.EmbeddingProvider.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := geminiBatchEmbedRequest{Requests: make([]geminiEmbedContentRequest, len(texts))}
	for i, text := range texts {
		req.Requests[i] = geminiEmbedContentRequest{
			Model:                "models/" + p.model,
			Content:              geminiContent{Parts: []geminiTextPart{{Text: text}}},
			OutputDimensionality: p.dims,
		}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents", p.baseURL, p.model)
	body, err := p.postJSON(ctx, url, req, map[string]string{"X-Goog-Api-Key": p.apiKey})
	if err != nil {
		return nil, err
	}

	var resp geminiBatchEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrEmbeddingFailed, err)
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vecs[i] = e.Values
	}
	if err := checkBatch(vecs, len(texts), p.dims); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (p *GeminiProvider) Dimensions() int { return p.dims }

// Name implements domain.EmbeddingProvider.
func (p *GeminiProvider) Name() string { return "gemini" }
