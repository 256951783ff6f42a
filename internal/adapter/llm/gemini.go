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

// GeminiProvider implements domain.LLMProvider for the Google Gemini API.
type GeminiProvider struct {
	name        string
	model       string
	apiKey      string
	baseURL     string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

// NewGeminiProvider creates a provider for the Google Gemini API.
func NewGeminiProvider(cfg config.ProviderConfig, logger *slog.Logger) *GeminiProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultGeminiModel
	}

	return &GeminiProvider{
		name:        cfg.Name,
		model:       model,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		client:      NewHTTPClient(cfg),
		logger:      logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *GeminiProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.Temperature == 0 {
		req.Temperature = p.temperature
	}

	ctx, span := startChatSpan(ctx, p.name, req.Model)
	defer span.End()

	body, err := json.Marshal(toGeminiRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, req.Model)
	respBody, err := doJSONRequest(ctx, p.client, url, body, map[string]string{
		"X-Goog-Api-Key": p.apiKey,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(respBody, &gemResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrMalformedResponse, err)
	}

	result, err := fromGeminiResponse(gemResp, req.Model)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.LLMProvider.
func (p *GeminiProvider) Name() string { return p.name }

// --- Gemini API wire types ---

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	UsageMetadata  *geminiUsage          `json:"usageMetadata,omitempty"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func toGeminiRequest(req domain.ChatRequest) geminiRequest {
	gemReq := geminiRequest{}

	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			gemReq.SystemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: m.Content}},
			}
			continue
		}

		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		gemReq.Contents = append(gemReq.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	gc := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
	if req.Temperature > 0 {
		t := req.Temperature
		gc.Temperature = &t
	}
	if req.JSONMode {
		gc.ResponseMimeType = "application/json"
	}
	if gc.Temperature != nil || gc.MaxOutputTokens > 0 || gc.ResponseMimeType != "" {
		gemReq.GenerationConfig = gc
	}

	return gemReq
}

func fromGeminiResponse(resp geminiResponse, model string) (*domain.ChatResponse, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked: %s", domain.ErrProviderError, resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%w: response has no candidates", domain.ErrMalformedResponse)
	}

	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	result := &domain.ChatResponse{
		Model:     model,
		CreatedAt: time.Now(),
	}
	if resp.UsageMetadata != nil {
		result.Usage = domain.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	result.Message = domain.Message{
		Role:      domain.RoleAssistant,
		Content:   sb.String(),
		Timestamp: result.CreatedAt,
	}
	return result, nil
}
