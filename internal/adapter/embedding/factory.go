package embedding

import (
	"context"
	"fmt"
	"net/http"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

// New builds the embedding provider described by cfg, wrapped in the
// on-disk cache when cfg.Persist.Path is set and in an LRU cache when
// cfg.CacheSize > 0.
func New(cfg config.EmbeddingConfig) (domain.EmbeddingProvider, error) {
	p, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return wrapCaches(p, cfg)
}

func wrapCaches(p domain.EmbeddingProvider, cfg config.EmbeddingConfig) (domain.EmbeddingProvider, error) {
	if cfg.Persist.Path != "" {
		model := cfg.Model
		if m, ok := p.(interface{ Model() string }); ok {
			model = m.Model()
		}
		pc, err := NewPersistentCache(p, cfg.Persist.Path, model)
		if err != nil {
			return nil, err
		}
		p = pc
	}
	return NewCachedEmbedder(p, cfg.CacheSize), nil
}

func newBackend(cfg config.EmbeddingConfig) (domain.EmbeddingProvider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := []Option{
		WithModel(cfg.Model),
		WithDimensions(cfg.Dimensions),
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	}

	var p domain.EmbeddingProvider
	switch cfg.Provider {
	case "local", "":
		dims := cfg.Dimensions
		if dims == 0 {
			dims = ollamaDefaultDims
		}
		lp, err := NewLocalProvider(dims)
		if err != nil {
			return nil, err
		}
		p = lp
	case "ollama":
		p = NewOllamaProvider(opts...)
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini embedding api key", domain.ErrCredentialMissing)
		}
		p = NewGeminiProvider(cfg.APIKey, opts...)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai embedding api key", domain.ErrCredentialMissing)
		}
		p = NewOpenAIProvider(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrEmbeddingFailed, cfg.Provider)
	}
	return p, nil
}

// Load builds the provider like New and, for remote backends, embeds a probe
// string so that an unreachable server or wrong model fails at startup. The
// probe bypasses the caches.
func Load(ctx context.Context, cfg config.EmbeddingConfig) (domain.EmbeddingProvider, error) {
	p, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Provider != "local" && cfg.Provider != "" {
		if _, err := p.Embed(ctx, []string{"semanticheck startup probe"}); err != nil {
			return nil, fmt.Errorf("probe %s embedding provider: %w", p.Name(), err)
		}
	}
	return wrapCaches(p, cfg)
}
