package main

import (
	"fmt"
	"log/slog"

	"semanticheck/internal/adapter/llm"
	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

// LLMComponents holds the registered providers and the one analysis uses.
// DefaultLLM is nil when the default provider has no credentials, in which
// case remote analysis reports a missing key instead of failing startup.
type LLMComponents struct {
	Registry   *llm.Registry
	DefaultLLM domain.LLMProvider
}

// initLLM registers every usable provider, wraps each in a circuit breaker
// when enabled, and builds the default provider with its failover chain.
func initLLM(cfg *config.Config, log *slog.Logger) (*LLMComponents, error) {
	registry := llm.NewRegistry()

	cbCfg := cfg.LLM.CircuitBreaker
	for _, pc := range cfg.LLM.Providers {
		if requiresAPIKey(pc.Type) && pc.APIKey == "" {
			log.Warn("llm provider skipped: no api key", "provider", pc.Name, "type", pc.Type)
			continue
		}

		provider, err := createLLMProvider(pc, log)
		if err != nil {
			return nil, fmt.Errorf("llm provider %s: %w", pc.Name, err)
		}

		if cbCfg.Enabled {
			provider = llm.NewCircuitBreakerProvider(provider, cbCfg, log)
		}

		if err := registry.Register(provider); err != nil {
			return nil, fmt.Errorf("llm provider %s: %w", pc.Name, err)
		}
	}

	if cbCfg.Enabled {
		log.Info("llm circuit breaker enabled",
			"max_failures", cbCfg.MaxFailures,
			"timeout", cbCfg.Timeout,
			"interval", cbCfg.Interval,
		)
	}

	comps := &LLMComponents{Registry: registry}

	defaultLLM, err := registry.Get(cfg.LLM.DefaultProvider)
	if err != nil {
		log.Warn("default llm provider unavailable, remote analysis disabled",
			"provider", cfg.LLM.DefaultProvider)
		return comps, nil
	}

	if cfg.LLM.Failover.Enabled && len(cfg.LLM.Failover.Fallbacks) > 0 {
		var fallbacks []domain.LLMProvider
		var names []string
		for _, name := range cfg.LLM.Failover.Fallbacks {
			fb, err := registry.Get(name)
			if err != nil {
				log.Warn("failover provider skipped", "provider", name, "error", err)
				continue
			}
			fallbacks = append(fallbacks, fb)
			names = append(names, name)
		}
		if len(fallbacks) > 0 {
			defaultLLM = llm.NewFailoverProvider(defaultLLM, fallbacks, log)
			log.Info("model failover enabled", "fallbacks", names)
		}
	}

	comps.DefaultLLM = defaultLLM
	return comps, nil
}

func createLLMProvider(pc config.ProviderConfig, log *slog.Logger) (domain.LLMProvider, error) {
	switch pc.Type {
	case "gemini":
		return llm.NewGeminiProvider(pc, log), nil
	case "openai":
		return llm.NewOpenAIProvider(pc, log), nil
	case "ollama":
		return llm.NewOllamaProvider(pc, log), nil
	case "bedrock":
		return createBedrockProvider(pc, log)
	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Type)
	}
}

// requiresAPIKey reports whether a provider type authenticates with a key.
// Bedrock uses the AWS credential chain and Ollama needs none.
func requiresAPIKey(providerType string) bool {
	return providerType == "gemini" || providerType == "openai"
}
