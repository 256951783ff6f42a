package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"semanticheck/internal/domain"
)

var _ domain.LLMProvider = (*FailoverProvider)(nil)

// FailoverProvider tries a primary provider and then each fallback in order.
type FailoverProvider struct {
	primary   domain.LLMProvider
	fallbacks []domain.LLMProvider
	logger    *slog.Logger
}

// NewFailoverProvider creates a failover-capable provider.
func NewFailoverProvider(primary domain.LLMProvider, fallbacks []domain.LLMProvider, logger *slog.Logger) *FailoverProvider {
	return &FailoverProvider{primary: primary, fallbacks: fallbacks, logger: logger}
}

// Chat tries the primary provider first, then each fallback on failure.
// Cancellation of ctx stops the chain immediately.
func (f *FailoverProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	resp, err := f.primary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}
	f.logger.Warn("primary LLM failed, trying fallbacks", "primary", f.primary.Name(), "error", err)

	errs := []error{fmt.Errorf("%s: %w", f.primary.Name(), err)}
	for _, fb := range f.fallbacks {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
			break
		}
		resp, err = fb.Chat(ctx, req)
		if err == nil {
			f.logger.Info("failover succeeded", "provider", fb.Name())
			return resp, nil
		}
		f.logger.Warn("fallback LLM failed", "provider", fb.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", fb.Name(), err))
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrAllProvidersFailed, errors.Join(errs...))
}

// Name returns a composite name.
func (f *FailoverProvider) Name() string { return f.primary.Name() + "+failover" }
