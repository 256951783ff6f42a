package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// isolateEnv clears the variables that would otherwise leak real
// credentials or settings into a test run, and selects the in-process
// embedding model so no Ollama server is needed.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY",
		"SEMANTICHECK_CONFIG",
		"SEMANTICHECK_CONFIG_KEY",
		"SEMANTICHECK_LLM_DEFAULT_PROVIDER",
		"SEMANTICHECK_LLM_PROVIDER_GEMINI_API_KEY",
		"SEMANTICHECK_EMBEDDING_PROVIDER",
		"SEMANTICHECK_EMBEDDING_API_KEY",
		"SEMANTICHECK_LIMITS_MAX_INPUT_TOKENS",
		"SEMANTICHECK_LOGGER_OUTPUT",
		"SEMANTICHECK_AUDIT_ENABLED",
		"SEMANTICHECK_AUDIT_PATH",
		"SEMANTICHECK_EMBEDDING_PERSIST_PATH",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("SEMANTICHECK_LOGGER_LEVEL", "error")
	t.Setenv("SEMANTICHECK_EMBEDDING_PROVIDER", "local")
}

// writeConfig writes a YAML config with the permissions Load requires.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// execute runs the command tree with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.yaml")
}
