package config

import (
	"fmt"
	"net"
	"strings"

	"semanticheck/internal/infra/scheduler"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
//
// Missing LLM credentials are not a validation error: the service runs with
// local analysis only and reports the missing key per request.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateLLM(cfg, ve)
	validateEmbedding(cfg, ve)
	validatePrompts(cfg, ve)
	validateLimits(cfg, ve)
	validateGateway(cfg, ve)
	validateLogger(cfg, ve)
	validateMetrics(cfg, ve)
	validateAudit(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Addr == "" {
		ve.Add("server.addr must not be empty")
	} else if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		ve.Add("server.addr %q is not a valid host:port", s.Addr)
	}
	if s.MaxBodyBytes <= 0 {
		ve.Add("server.max_body_bytes must be > 0")
	}
	if s.MaxUploadBytes <= 0 {
		ve.Add("server.max_upload_bytes must be > 0")
	}
	if s.RequestTimeout <= 0 {
		ve.Add("server.request_timeout must be > 0")
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			ve.Add("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.Burst <= 0 {
			ve.Add("server.rate_limit.burst must be > 0 when rate limiting is enabled")
		}
	}
	for i, cidr := range s.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil && net.ParseIP(cidr) == nil {
			ve.Add("server.trusted_proxies[%d] %q is not an IP or CIDR", i, cidr)
		}
	}
}

var validProviderTypes = map[string]bool{
	"gemini":  true,
	"openai":  true,
	"ollama":  true,
	"bedrock": true,
}

func validateLLM(cfg *Config, ve *ValidationError) {
	if cfg.LLM.DefaultProvider == "" {
		ve.Add("llm.default_provider must not be empty")
	}

	seen := make(map[string]bool)
	foundDefault := false
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			ve.Add("llm.providers[%d].name must not be empty", i)
			continue
		}
		if seen[p.Name] {
			ve.Add("llm.providers[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = true

		if !validProviderTypes[p.Type] {
			ve.Add("llm.providers[%d].type %q is invalid (want: gemini, openai, ollama, bedrock)", i, p.Type)
		}
		if p.Type == "bedrock" && p.Region == "" {
			ve.Add("llm.providers[%d] (%s): region is required for bedrock provider", i, p.Name)
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			ve.Add("llm.providers[%d] (%s): temperature must be within [0, 2]", i, p.Name)
		}
		if p.Name == cfg.LLM.DefaultProvider {
			foundDefault = true
		}
	}

	if !foundDefault && cfg.LLM.DefaultProvider != "" {
		ve.Add("llm.default_provider %q does not match any configured provider", cfg.LLM.DefaultProvider)
	}

	if cfg.LLM.Failover.Enabled {
		for _, fb := range cfg.LLM.Failover.Fallbacks {
			if !seen[fb] {
				ve.Add("llm.failover.fallbacks: unknown provider %q", fb)
			}
		}
	}
	if cfg.LLM.CircuitBreaker.Enabled {
		if cfg.LLM.CircuitBreaker.MaxFailures == 0 {
			ve.Add("llm.circuit_breaker.max_failures must be > 0 when enabled")
		}
		if cfg.LLM.CircuitBreaker.Timeout <= 0 {
			ve.Add("llm.circuit_breaker.timeout must be > 0 when enabled")
		}
	}
}

var validEmbeddingProviders = map[string]bool{
	"local":  true,
	"ollama": true,
	"gemini": true,
	"openai": true,
}

func validateEmbedding(cfg *Config, ve *ValidationError) {
	e := cfg.Embedding
	if !validEmbeddingProviders[e.Provider] {
		ve.Add("embedding.provider %q is invalid (want: local, ollama, gemini, openai)", e.Provider)
	}
	if e.Dimensions < 0 {
		ve.Add("embedding.dimensions must be >= 0")
	}
	if e.Provider == "local" && e.Model != "" && e.Model != LocalEmbeddingModel {
		ve.Add("embedding.model %q is not available for the local provider (want %s or empty)", e.Model, LocalEmbeddingModel)
	}
	if e.CacheSize < 0 {
		ve.Add("embedding.cache_size must be >= 0")
	}
	if (e.Provider == "gemini" || e.Provider == "openai") && e.APIKey == "" {
		ve.Add("embedding.api_key is required for the %s provider (set via SEMANTICHECK_EMBEDDING_API_KEY)", e.Provider)
	}
	if e.Persist.Path != "" {
		if e.Persist.MaxAge < 0 {
			ve.Add("embedding.persist.max_age must be >= 0")
		}
		if e.Persist.MaxAge > 0 {
			if _, err := scheduler.ParseSchedule(e.Persist.PruneSchedule); err != nil {
				ve.Add("embedding.persist.prune_schedule: %v", err)
			}
		}
	}
}

func validatePrompts(cfg *Config, ve *ValidationError) {
	if cfg.Prompts.Detector == "" {
		ve.Add("prompts.detector must not be empty")
	}
	if cfg.Prompts.Comparator == "" {
		ve.Add("prompts.comparator must not be empty")
	}
}

func validateLimits(cfg *Config, ve *ValidationError) {
	if cfg.Limits.MaxInputTokens < 0 {
		ve.Add("limits.max_input_tokens must be >= 0")
	}
	if cfg.Limits.MaxInputTokens > 0 && cfg.Limits.TokenizerModel == "" {
		ve.Add("limits.tokenizer_model is required when max_input_tokens is set")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	switch cfg.Gateway.Auth.Type {
	case "":
	case "static":
		if len(cfg.Gateway.Auth.Tokens) == 0 {
			ve.Add("gateway.auth.tokens must not be empty when auth type is static")
		}
		for i, t := range cfg.Gateway.Auth.Tokens {
			if t.Token == "" {
				ve.Add("gateway.auth.tokens[%d].token must not be empty", i)
			}
		}
	default:
		ve.Add("gateway.auth.type %q is invalid (want: static or empty)", cfg.Gateway.Auth.Type)
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if cfg.Logger.Format != "text" && cfg.Logger.Format != "json" {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		ve.Add("metrics.path %q must start with /", cfg.Metrics.Path)
	}
}

func validateAudit(cfg *Config, ve *ValidationError) {
	a := cfg.Audit
	if !a.Enabled {
		return
	}
	if a.Path == "" {
		ve.Add("audit.path must not be empty when audit is enabled")
	}
	if a.MaxAge < 0 {
		ve.Add("audit.max_age must be >= 0")
	}
	if _, err := ParseByteSize(a.MaxSize); err != nil {
		ve.Add("audit.max_size: %v", err)
	}
	if a.MaxAge > 0 || a.MaxSize != "" {
		if _, err := scheduler.ParseSchedule(a.RetentionSchedule); err != nil {
			ve.Add("audit.retention_schedule: %v", err)
		}
	}
}
