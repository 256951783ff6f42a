package embedding

import (
	"sync"
	"sync/atomic"

	"semanticheck/internal/domain"
)

// Handle owns the process-wide embedding provider. The loader runs at most
// once, on the first call to Get; every later call returns the same provider
// or the same load error. Callers that need it share one Handle, passed
// explicitly.
type Handle struct {
	load func() (domain.EmbeddingProvider, error)

	once     sync.Once
	loaded   atomic.Bool
	provider domain.EmbeddingProvider
	err      error
}

// NewHandle creates a Handle that will build its provider with load.
func NewHandle(load func() (domain.EmbeddingProvider, error)) *Handle {
	return &Handle{load: load}
}

// StaticHandle wraps an already constructed provider.
func StaticHandle(p domain.EmbeddingProvider) *Handle {
	h := &Handle{}
	h.once.Do(func() { h.provider = p })
	h.loaded.Store(true)
	return h
}

// Get returns the provider, loading it on first use. Concurrent first calls
// block until the single load finishes.
func (h *Handle) Get() (domain.EmbeddingProvider, error) {
	h.once.Do(func() {
		h.provider, h.err = h.load()
		if h.err != nil {
			h.provider = nil
		}
		h.loaded.Store(true)
	})
	return h.provider, h.err
}

// Close releases the on-disk cache of a loaded provider. A handle that was
// never loaded is left alone.
func (h *Handle) Close() error {
	if !h.loaded.Load() || h.provider == nil {
		return nil
	}
	if pc, ok := Persistent(h.provider); ok {
		return pc.Close()
	}
	return nil
}
