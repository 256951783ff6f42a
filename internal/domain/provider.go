package domain

import (
	"context"
	"strings"
)

// LLMProvider is the interface for any LLM backend.
type LLMProvider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "gemini", "ollama").
	Name() string
}

// Generate sends a single system+user exchange and returns the reply text.
// An empty system prompt is omitted from the request.
func Generate(ctx context.Context, p LLMProvider, system, user string) (string, error) {
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})

	resp, err := p.Chat(ctx, ChatRequest{Messages: msgs})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
