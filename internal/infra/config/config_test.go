package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.LLM.DefaultProvider != "gemini" {
		t.Errorf("DefaultProvider = %q, want %q", cfg.LLM.DefaultProvider, "gemini")
	}
	p, ok := cfg.FindProvider("gemini")
	if !ok {
		t.Fatal("default gemini provider missing")
	}
	if p.Model != DefaultGeminiModel {
		t.Errorf("Model = %q, want %q", p.Model, DefaultGeminiModel)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "" || cfg.Embedding.Dimensions != 0 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected defaults, got Addr=%q", cfg.Server.Addr)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
server:
  addr: "127.0.0.1:9000"
  request_timeout: 15s
llm:
  default_provider: "local-llm"
  providers:
    - name: "local-llm"
      type: "ollama"
      base_url: "http://localhost:11434"
      model: "llama3.2"
embedding:
  provider: "ollama"
  model: "all-minilm"
  dimensions: 384
logger:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "local-llm", cfg.LLM.DefaultProvider)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "ollama", cfg.LLM.Providers[0].Type)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadInsecurePermissions(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "logger:\n  level: info\n")
	require.NoError(t, os.Chmod(path, 0o666))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure permissions")
}

func TestLoadValidationFailure(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
embedding:
  provider: "word2vec"
`)
	_, err := Load(path)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "want *ValidationError, got %v", err)
	assert.Contains(t, ve.Error(), "embedding.provider")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEMANTICHECK_SERVER_ADDR", ":9999")
	t.Setenv("SEMANTICHECK_LOGGER_LEVEL", "debug")
	t.Setenv("SEMANTICHECK_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("SEMANTICHECK_LIMITS_MAX_INPUT_TOKENS", "4000")
	t.Setenv("SEMANTICHECK_LLM_FALLBACKS", "a, b ,")
	t.Setenv("SEMANTICHECK_GATEWAY_TOKEN", "tok")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 4000, cfg.Limits.MaxInputTokens)
	assert.True(t, cfg.LLM.Failover.Enabled)
	assert.Equal(t, []string{"a", "b"}, cfg.LLM.Failover.Fallbacks)
	assert.Equal(t, "static", cfg.Gateway.Auth.Type)
	require.Len(t, cfg.Gateway.Auth.Tokens, 1)
	assert.Equal(t, "tok", cfg.Gateway.Auth.Tokens[0].Token)
}

func TestEnvOverrides_GeminiAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg := Defaults()
	cfg.LLM.Providers = append(cfg.LLM.Providers,
		ProviderConfig{Name: "pinned", Type: "gemini", APIKey: "configured"},
		ProviderConfig{Name: "oa", Type: "openai"},
	)
	cfg.Embedding.Provider = "gemini"
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "from-env", cfg.LLM.Providers[0].APIKey)
	assert.Equal(t, "configured", cfg.LLM.Providers[1].APIKey, "explicit key must win")
	assert.Empty(t, cfg.LLM.Providers[2].APIKey, "non-gemini providers untouched")
	assert.Equal(t, "from-env", cfg.Embedding.APIKey)
}

func TestEnvOverrides_PerProviderKey(t *testing.T) {
	t.Setenv("SEMANTICHECK_LLM_PROVIDER_GEMINI_API_KEY", "specific")
	t.Setenv("GEMINI_API_KEY", "generic")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, "specific", cfg.LLM.Providers[0].APIKey)
}

func TestLoad_MissingAPIKeyIsNotFatal(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.Providers[0].APIKey)
}

func TestLoadEncryptedSecrets(t *testing.T) {
	const passphrase = "correct horse battery staple"
	enc, err := EncryptValue("sk-secret", passphrase)
	require.NoError(t, err)

	path := writeConfig(t, t.TempDir(), "config.yaml", `
llm:
  default_provider: "gemini"
  providers:
    - name: "gemini"
      type: "gemini"
      api_key: "`+EncryptedPrefix+enc+`"
`)
	t.Setenv("SEMANTICHECK_CONFIG_KEY", passphrase)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.LLM.Providers[0].APIKey)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := EncryptValue("hello", "pass")
	require.NoError(t, err)
	assert.False(t, strings.Contains(enc, "hello"))

	dec, err := DecryptValue(enc, "pass")
	require.NoError(t, err)
	assert.Equal(t, "hello", dec)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc, err := EncryptValue("hello", "pass")
	require.NoError(t, err)

	_, err = DecryptValue(enc, "other")
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestDecryptInvalidFormat(t *testing.T) {
	_, err := DecryptValue("no-separator", "pass")
	assert.ErrorIs(t, err, domain.ErrDecryption)

	_, err = DecryptValue("zz:zz", "pass")
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "logging.yaml", `
logger:
  level: "warn"
  format: "json"
`)
	path := writeConfig(t, dir, "config.yaml", `
includes:
  - logging.yaml
logger:
  level: "error"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logger.Level, "main file wins")
	assert.Equal(t, "json", cfg.Logger.Format, "included value kept")
	assert.Nil(t, cfg.Includes)
}

func TestLoadIncludesCircular(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "includes:\n  - b.yaml\n")
	writeConfig(t, dir, "b.yaml", "includes:\n  - a.yaml\n")
	path := writeConfig(t, dir, "config.yaml", "includes:\n  - a.yaml\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular")
}

func TestLoadIncludesEscape(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "includes:\n  - ../outside.yaml\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestLoadIncludesGlobNoMatch(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "includes:\n  - conf.d/*.yaml\n")
	_, err := Load(path)
	assert.NoError(t, err)
}
