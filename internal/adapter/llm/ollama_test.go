package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("Ollama is running"))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:8b","size":4661224676}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"1","model":"llama3:8b","choices":[{"message":{"role":"assistant","content":"local reply"}}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestOllamaProviderChat(t *testing.T) {
	server := newOllamaServer(t)
	p := NewOllamaProvider(config.ProviderConfig{Name: "ollama", BaseURL: server.URL, Model: "llama3:8b"}, newTestLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "local reply", resp.Message.Content)
	assert.Equal(t, "ollama", p.Name())
}

func TestOllamaProviderListModelsAndHealth(t *testing.T) {
	server := newOllamaServer(t)
	p := NewOllamaProvider(config.ProviderConfig{Name: "ollama", BaseURL: server.URL}, newTestLogger())

	assert.True(t, p.IsHealthy(context.Background()))

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3:8b", models[0].Name)
}

func TestOllamaProviderUnhealthy(t *testing.T) {
	p := NewOllamaProvider(config.ProviderConfig{Name: "ollama", BaseURL: "http://127.0.0.1:1"}, newTestLogger())
	assert.False(t, p.IsHealthy(context.Background()))
}
