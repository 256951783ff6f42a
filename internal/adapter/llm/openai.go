package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
	"semanticheck/internal/infra/tracer"
)

var _ domain.LLMProvider = (*OpenAIProvider)(nil)

// OpenAIProvider implements domain.LLMProvider for OpenAI-compatible
// chat completion APIs.
type OpenAIProvider struct {
	name        string
	model       string
	apiKey      string
	baseURL     string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible API.
func NewOpenAIProvider(cfg config.ProviderConfig, logger *slog.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		name:        cfg.Name,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		client:      NewHTTPClient(cfg),
		logger:      logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *OpenAIProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.Temperature == 0 {
		req.Temperature = p.temperature
	}

	ctx, span := startChatSpan(ctx, p.name, req.Model)
	defer span.End()

	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrMalformedResponse, err)
	}
	if len(oaiResp.Choices) == 0 {
		err := fmt.Errorf("%w: response has no choices", domain.ErrMalformedResponse)
		tracer.RecordError(span, err)
		return nil, err
	}

	result := fromOpenAIResponse(oaiResp)
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.LLMProvider.
func (p *OpenAIProvider) Name() string { return p.name }

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model          string               `json:"model"`
	Messages       []openaiMessage      `json:"messages"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	Temperature    *float64             `json:"temperature,omitempty"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Created int64          `json:"created"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func toOpenAIRequest(req domain.ChatRequest) openaiRequest {
	oaiReq := openaiRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		oaiReq.Temperature = &t
	}
	if req.JSONMode {
		oaiReq.ResponseFormat = &openaiResponseFormat{Type: "json_object"}
	}
	for _, m := range req.Messages {
		oaiReq.Messages = append(oaiReq.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	return oaiReq
}

func fromOpenAIResponse(resp openaiResponse) *domain.ChatResponse {
	created := time.Now()
	if resp.Created > 0 {
		created = time.Unix(resp.Created, 0)
	}
	return &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Message: domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Choices[0].Message.Content,
			Timestamp: created,
		},
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: created,
	}
}
