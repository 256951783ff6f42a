package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

var _ domain.LLMProvider = (*OllamaProvider)(nil)

// Default Ollama timeouts: short connect (local), long response (model loading).
const (
	ollamaDefaultConnTimeout = 5 * time.Second
	ollamaDefaultRespTimeout = 300 * time.Second
)

// OllamaProvider talks to a local Ollama server. Chat goes through Ollama's
// OpenAI-compatible /v1 endpoint; model listing and health use the native API.
type OllamaProvider struct {
	inner   *OpenAIProvider
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// OllamaModel describes a locally available Ollama model.
type OllamaModel struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(cfg config.ProviderConfig, logger *slog.Logger) *OllamaProvider {
	ollamaCfg := cfg
	if ollamaCfg.ConnTimeout == 0 {
		ollamaCfg.ConnTimeout = ollamaDefaultConnTimeout
	}
	if ollamaCfg.RespTimeout == 0 {
		ollamaCfg.RespTimeout = ollamaDefaultRespTimeout
	}
	client := NewHTTPClient(ollamaCfg)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		inner: &OpenAIProvider{
			name:        cfg.Name,
			model:       cfg.Model,
			baseURL:     baseURL + "/v1",
			temperature: cfg.Temperature,
			client:      client,
			logger:      logger,
		},
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *OllamaProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return p.inner.Chat(ctx, req)
}

// Name implements domain.LLMProvider.
func (p *OllamaProvider) Name() string { return p.inner.Name() }

// ListModels returns the locally available Ollama models.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]OllamaModel, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(httpResp.StatusCode, body)
	}

	var resp struct {
		Models []OllamaModel `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return resp.Models, nil
}

// IsHealthy reports whether the Ollama server answers on its root path.
func (p *OllamaProvider) IsHealthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return false
	}
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return false
	}
	httpResp.Body.Close()
	return httpResp.StatusCode == http.StatusOK
}
