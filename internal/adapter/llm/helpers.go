package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/tracer"
)

// maxResponseBody is the maximum response body size we read from LLM APIs.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// maxErrorDetail bounds how much of an error body is echoed into error messages.
const maxErrorDetail = 512

// doJSONRequest performs a JSON POST request and returns the response body.
// Non-200 responses are mapped to domain errors by mapHTTPError.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

// logChatCompleted logs the standard debug message after a successful LLM chat.
func logChatCompleted(logger *slog.Logger, providerName string, result *domain.ChatResponse) {
	logger.Debug("llm chat completed",
		"provider", providerName,
		"model", result.Model,
		"tokens", result.Usage.TotalTokens,
	)
}

// setUsageAttrs adds token usage attributes to a trace span.
func setUsageAttrs(span trace.Span, usage domain.Usage) {
	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", usage.CompletionTokens),
	)
}

// mapHTTPError maps an HTTP status code + response body to a domain error so
// the circuit breaker and callers can classify provider failures.
func mapHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > maxErrorDetail {
		bodyStr = bodyStr[:maxErrorDetail] + "..."
	}
	detail := fmt.Sprintf("API error %d: %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimit, detail)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrAuthInvalid, detail)
	case statusCode == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", domain.ErrContextOverflow, detail)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", domain.ErrTimeout, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrProviderError, detail)
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, detail)
	}
}

// startChatSpan opens the "llm.chat" span shared by every provider.
func startChatSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", provider),
			tracer.StringAttr("llm.model", model),
		),
	)
}
