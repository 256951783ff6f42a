package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"semanticheck/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingLLM returns a canned reply and records every request.
type recordingLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []domain.ChatRequest
}

func (r *recordingLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.ChatResponse{
		Message: domain.Message{Role: domain.RoleAssistant, Content: r.reply},
	}, nil
}

func (r *recordingLLM) Name() string { return "recording" }

func (r *recordingLLM) calls() []domain.ChatRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ChatRequest(nil), r.requests...)
}

// stubEmbedder maps known texts to fixed vectors and everything else to def.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	def     []float32
	err     error
	seen    [][]string
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, append([]string(nil), texts...))
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = s.def
		}
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.def) }
func (s *stubEmbedder) Name() string    { return "stub" }

// staticSource hands out a fixed provider or error.
type staticSource struct {
	p   domain.EmbeddingProvider
	err error
}

func (s staticSource) Get() (domain.EmbeddingProvider, error) { return s.p, s.err }

var errLoad = errors.New("model not loaded")

// stubExtractor returns a fixed text or error.
type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(string, []byte) (string, error) { return s.text, s.err }

func testPrompts() *PromptSet {
	p, err := NewPromptSet("Classify this:\n"+TextMarker, "You compare texts.")
	if err != nil {
		panic(err)
	}
	return p
}

// recordingAudit keeps audit events in memory.
type recordingAudit struct {
	mu     sync.Mutex
	err    error
	events []domain.AuditEvent
}

func (r *recordingAudit) Log(_ context.Context, e domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingAudit) all() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.events...)
}
