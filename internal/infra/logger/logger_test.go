package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"semanticheck/internal/infra/config"
)

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, config.LoggerConfig{Level: "info", Format: "json"})).
		With("service", ServiceName)

	log.Info("test message", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v, output: %s", err, buf.String())
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["service"] != ServiceName {
		t.Errorf("service = %q, want %q", entry["service"], ServiceName)
	}
}

func TestNewHandlerTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, config.LoggerConfig{Level: "warn", Format: "text"}))

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestOpenOutputStd(t *testing.T) {
	for _, name := range []string{"stdout", "stderr", ""} {
		w, closer, err := openOutput(name)
		if err != nil {
			t.Fatalf("openOutput(%q): %v", name, err)
		}
		if w != os.Stdout && w != os.Stderr {
			t.Errorf("openOutput(%q) returned %T", name, w)
		}
		if err := closer(); err != nil {
			t.Errorf("closer: %v", err)
		}
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, closer, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("to file")
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestNewBadOutput(t *testing.T) {
	_, _, err := New(config.LoggerConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Fatal("expected error for unwritable output")
	}
}

func TestContextRoundTrip(t *testing.T) {
	fallback := slog.Default()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("empty context should return fallback")
	}

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx, fallback); got != l {
		t.Error("expected stored logger")
	}
}
