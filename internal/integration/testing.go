// Package integration holds end-to-end tests against real model backends.
// They run with -tags integration and skip when the backend is not configured.
package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds integration test settings read from the environment.
type Config struct {
	GeminiKey   string
	OpenAIKey   string
	OllamaURL   string
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig reads the integration test settings.
func LoadConfig() *Config {
	return &Config{
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OllamaURL:   os.Getenv("OLLAMA_URL"),
		TestTimeout: 60 * time.Second,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfUnset skips the test when a required setting is empty.
func SkipIfUnset(t *testing.T, value, env string) {
	t.Helper()
	if value == "" {
		t.Skipf("skipping: %s not set", env)
	}
}

// SkipIfShort skips integration tests in short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// NewTestContext returns a context cancelled after timeout or at test end.
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
