package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"semanticheck/internal/domain"
)

const (
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
	maxErrorDetail  = 512
	defaultTimeout  = 30 * time.Second
)

// Option configures a remote embedding provider.
type Option func(*remote)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(r *remote) {
		if model != "" {
			r.model = model
		}
	}
}

// WithDimensions sets the expected vector length. Zero keeps the provider default.
func WithDimensions(dims int) Option {
	return func(r *remote) {
		if dims > 0 {
			r.dims = dims
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(r *remote) {
		if url != "" {
			r.baseURL = url
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(r *remote) {
		if client != nil {
			r.client = client
		}
	}
}

// remote holds the settings shared by the HTTP-backed providers.
type remote struct {
	apiKey  string
	model   string
	dims    int
	baseURL string
	client  *http.Client
}

// Model returns the model name sent with each request.
func (r remote) Model() string { return r.model }

func newRemote(apiKey, model string, dims int, baseURL string, opts []Option) remote {
	r := remote{
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// postJSON sends payload to url and returns the raw 200 response body.
// Every failure is wrapped in domain.ErrEmbeddingFailed.
func (r *remote) postJSON(ctx context.Context, url string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrEmbeddingFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrEmbeddingFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", domain.ErrEmbeddingFailed, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrEmbeddingFailed, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		detail := string(respBody)
		if len(detail) > maxErrorDetail {
			detail = detail[:maxErrorDetail] + "..."
		}
		return nil, fmt.Errorf("%w: API error %d: %s", domain.ErrEmbeddingFailed, httpResp.StatusCode, detail)
	}
	return respBody, nil
}

// checkBatch verifies a provider answered with one vector of the expected
// length per input.
func checkBatch(vecs [][]float32, want, dims int) error {
	if len(vecs) != want {
		return fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbeddingFailed, len(vecs), want)
	}
	if dims <= 0 {
		return nil
	}
	for _, v := range vecs {
		if len(v) != dims {
			return &domain.DimensionMismatchError{Left: dims, Right: len(v)}
		}
	}
	return nil
}
