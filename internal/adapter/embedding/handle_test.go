package embedding

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func TestHandleLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	h := NewHandle(func() (domain.EmbeddingProvider, error) {
		loads.Add(1)
		return NewLocalProvider(16)
	})

	var wg sync.WaitGroup
	got := make([]domain.EmbeddingProvider, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := h.Get()
			assert.NoError(t, err)
			got[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, p := range got {
		require.NotNil(t, p)
		assert.Same(t, got[0], p)
	}
}

func TestHandleErrorIsSticky(t *testing.T) {
	var loads atomic.Int32
	boom := errors.New("model missing")
	h := NewHandle(func() (domain.EmbeddingProvider, error) {
		loads.Add(1)
		return nil, boom
	})

	for i := 0; i < 3; i++ {
		p, err := h.Get()
		assert.Nil(t, p)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestStaticHandle(t *testing.T) {
	lp, err := NewLocalProvider(8)
	require.NoError(t, err)

	p, err := StaticHandle(lp).Get()
	require.NoError(t, err)
	assert.Same(t, lp, p)
}

func TestHandleCloseUnloaded(t *testing.T) {
	var loads atomic.Int32
	h := NewHandle(func() (domain.EmbeddingProvider, error) {
		loads.Add(1)
		return NewLocalProvider(8)
	})
	require.NoError(t, h.Close())
	assert.Zero(t, loads.Load())
}

func TestHandleClosesPersistentCache(t *testing.T) {
	pc, err := NewPersistentCache(&countingEmbedder{dims: 2}, t.TempDir()+"/cache.db", "m")
	require.NoError(t, err)
	h := StaticHandle(NewCachedEmbedder(pc, 4))

	require.NoError(t, h.Close())
	_, err = pc.Len(t.Context())
	assert.Error(t, err)
}
