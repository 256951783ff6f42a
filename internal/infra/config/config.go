package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Limits    LimitsConfig    `yaml:"limits"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Audit     AuditConfig     `yaml:"audit"`
	Includes  []string        `yaml:"includes,omitempty"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string          `yaml:"addr"`
	StaticDir      string          `yaml:"static_dir"` // empty = embedded UI
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	ReadTimeout    time.Duration   `yaml:"read_timeout"`
	WriteTimeout   time.Duration   `yaml:"write_timeout"`
	IdleTimeout    time.Duration   `yaml:"idle_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	TrustedProxies []string        `yaml:"trusted_proxies,omitempty"`
}

// RateLimitConfig holds per-client request rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// GatewayConfig holds WebSocket RPC settings. The gateway is served on the
// API listener under /ws.
type GatewayConfig struct {
	Enabled bool       `yaml:"enabled"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Type   string        `yaml:"type"` // "static" or ""
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single gateway auth token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// FailoverConfig holds model failover settings.
type FailoverConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Fallbacks []string `yaml:"fallbacks"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	Providers       []ProviderConfig     `yaml:"providers"`
	Failover        FailoverConfig       `yaml:"failover"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for LLM providers.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for outbound providers.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Region      string        `yaml:"region,omitempty"`
	Temperature float64       `yaml:"temperature,omitempty"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// LocalEmbeddingModel names the in-process hashed n-gram model. It is the
// only model the local provider accepts.
const LocalEmbeddingModel = "hashed-ngram-v1"

// EmbeddingConfig selects the sentence-embedding backend. An empty Model or
// zero Dimensions keeps the backend's own default (all-minilm with 384
// dimensions for Ollama).
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // "local", "ollama", "gemini", "openai"
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Dimensions int           `yaml:"dimensions"`
	CacheSize  int           `yaml:"cache_size"` // 0 disables the cache
	Timeout    time.Duration `yaml:"timeout"`
	Persist    PersistConfig `yaml:"persist"`
}

// PersistConfig holds the on-disk embedding cache settings. An empty Path
// disables it; MaxAge 0 keeps vectors forever.
type PersistConfig struct {
	Path          string        `yaml:"path"`
	MaxAge        time.Duration `yaml:"max_age"`
	PruneSchedule string        `yaml:"prune_schedule"`
}

// PromptsConfig locates the prompt templates. An empty Dir uses the
// templates compiled into the binary.
type PromptsConfig struct {
	Dir        string `yaml:"dir"`
	Detector   string `yaml:"detector"`
	Comparator string `yaml:"comparator"`
}

// LimitsConfig bounds the size of analysed input.
type LimitsConfig struct {
	MaxInputTokens int    `yaml:"max_input_tokens"` // 0 = unlimited
	TokenizerModel string `yaml:"tokenizer_model"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuditConfig holds the analysis audit trail settings. MaxAge 0 keeps
// entries forever and an empty MaxSize (e.g. "100MB") leaves the file
// unbounded. RetentionSchedule is a cron expression or a duration.
type AuditConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Path              string        `yaml:"path"`
	MaxAge            time.Duration `yaml:"max_age"`
	MaxSize           string        `yaml:"max_size"`
	RetentionSchedule string        `yaml:"retention_schedule"`
}

// DefaultGeminiModel is the model used when a gemini provider names none.
const DefaultGeminiModel = "gemini-2.5-flash"

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			MaxBodyBytes:   1 << 20,
			MaxUploadBytes: 10 << 20,
			RequestTimeout: 90 * time.Second,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			IdleTimeout:    120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 5,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers: []ProviderConfig{
				{Name: "gemini", Type: "gemini", Model: DefaultGeminiModel},
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			CacheSize: 1024,
			Timeout:   30 * time.Second,
			Persist: PersistConfig{
				MaxAge:        30 * 24 * time.Hour,
				PruneSchedule: "@daily",
			},
		},
		Prompts: PromptsConfig{
			Detector:   "ai_detector_prompt.txt",
			Comparator: "system_prompt.txt",
		},
		Limits: LimitsConfig{
			MaxInputTokens: 0,
			TokenizerModel: "gpt-4",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Audit: AuditConfig{
			Path:              "audit.jsonl",
			MaxAge:            30 * 24 * time.Hour,
			MaxSize:           "100MB",
			RetentionSchedule: "@hourly",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, err
		}
		// The main file takes precedence over anything it includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("SEMANTICHECK_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps SEMANTICHECK_* env vars to config fields. GEMINI_API_KEY
// fills the key of every gemini provider, and of a gemini embedding backend,
// that has none configured.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEMANTICHECK_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SEMANTICHECK_SERVER_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("SEMANTICHECK_SERVER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("SEMANTICHECK_SERVER_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("SEMANTICHECK_SERVER_RATE_LIMIT_ENABLED"); v != "" {
		cfg.Server.RateLimit.Enabled = v == "true"
	}
	if v := os.Getenv("SEMANTICHECK_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = splitAndTrim(v, ",")
	}
	if v := os.Getenv("SEMANTICHECK_LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("SEMANTICHECK_LLM_FALLBACKS"); v != "" {
		cfg.LLM.Failover.Enabled = true
		cfg.LLM.Failover.Fallbacks = splitAndTrim(v, ",")
	}
	if v := os.Getenv("SEMANTICHECK_LLM_CIRCUIT_BREAKER_ENABLED"); v == "true" {
		cfg.LLM.CircuitBreaker.Enabled = true
	}
	if v := os.Getenv("SEMANTICHECK_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("SEMANTICHECK_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("SEMANTICHECK_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("SEMANTICHECK_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("SEMANTICHECK_EMBEDDING_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Embedding.CacheSize = n
		}
	}
	if v := os.Getenv("SEMANTICHECK_PROMPTS_DIR"); v != "" {
		cfg.Prompts.Dir = v
	}
	if v := os.Getenv("SEMANTICHECK_LIMITS_MAX_INPUT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Limits.MaxInputTokens = n
		}
	}
	if v := os.Getenv("SEMANTICHECK_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SEMANTICHECK_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("SEMANTICHECK_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("SEMANTICHECK_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("SEMANTICHECK_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
	if v := os.Getenv("SEMANTICHECK_EMBEDDING_PERSIST_PATH"); v != "" {
		cfg.Embedding.Persist.Path = v
	}
	if v := os.Getenv("SEMANTICHECK_AUDIT_ENABLED"); v != "" {
		cfg.Audit.Enabled = v == "true"
	}
	if v := os.Getenv("SEMANTICHECK_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
	if v := os.Getenv("SEMANTICHECK_GATEWAY_ENABLED"); v == "true" {
		cfg.Gateway.Enabled = true
	}
	if v := os.Getenv("SEMANTICHECK_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Auth.Type = "static"
		cfg.Gateway.Auth.Tokens = append(cfg.Gateway.Auth.Tokens, TokenConfig{Token: v, Name: "env"})
	}

	// Per-provider API key overrides: SEMANTICHECK_LLM_PROVIDER_<NAME>_API_KEY
	for i := range cfg.LLM.Providers {
		envKey := fmt.Sprintf("SEMANTICHECK_LLM_PROVIDER_%s_API_KEY",
			strings.ToUpper(cfg.LLM.Providers[i].Name))
		if v := os.Getenv(envKey); v != "" {
			cfg.LLM.Providers[i].APIKey = v
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		for i := range cfg.LLM.Providers {
			if cfg.LLM.Providers[i].Type == "gemini" && cfg.LLM.Providers[i].APIKey == "" {
				cfg.LLM.Providers[i].APIKey = v
			}
		}
		if cfg.Embedding.Provider == "gemini" && cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}
}

// FindProvider returns the provider config with the given name.
func (c *Config) FindProvider(name string) (ProviderConfig, bool) {
	for _, p := range c.LLM.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// splitAndTrim splits s by sep, trims each element and drops empties.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}

// ParseByteSize parses a human-readable size such as "100MB" or "1GB".
// An empty string is 0.
func ParseByteSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSuffix(s, unit.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("parse size %q: invalid number", s)
	}
	return n * multiplier, nil
}
