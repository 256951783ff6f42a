package embedding

import (
	"container/list"
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"semanticheck/internal/domain"
)

type cacheKey [16]byte

type lruEntry struct {
	key cacheKey
	vec []float32
}

var _ domain.EmbeddingProvider = (*CachedEmbedder)(nil)

// CachedEmbedder wraps a provider with an LRU cache keyed by text. Batches
// are split: cached texts are served from memory and only the misses reach
// the inner provider, in one call. Returned vectors are shared with the
// cache and must not be modified.
type CachedEmbedder struct {
	inner   domain.EmbeddingProvider
	maxSize int

	mu    sync.Mutex
	cache map[cacheKey]*list.Element
	order *list.List // most recently used at back
}

// NewCachedEmbedder wraps inner with a cache of maxSize entries.
// If maxSize <= 0, inner is returned unchanged.
func NewCachedEmbedder(inner domain.EmbeddingProvider, maxSize int) domain.EmbeddingProvider {
	if maxSize <= 0 {
		return inner
	}
	return &CachedEmbedder{
		inner:   inner,
		maxSize: maxSize,
		cache:   make(map[cacheKey]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Embed implements domain.EmbeddingProvider.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]cacheKey, len(texts))

	// Misses are deduplicated: pending maps a key to its slot in missTexts.
	pending := make(map[cacheKey]int)
	var missTexts []string

	c.mu.Lock()
	for i, text := range texts {
		keys[i] = hashText(text)
		if elem, ok := c.cache[keys[i]]; ok {
			c.order.MoveToBack(elem)
			out[i] = elem.Value.(*lruEntry).vec
			continue
		}
		if _, ok := pending[keys[i]]; !ok {
			pending[keys[i]] = len(missTexts)
			missTexts = append(missTexts, text)
		}
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbeddingFailed, len(vecs), len(missTexts))
	}

	c.mu.Lock()
	for i := range texts {
		if out[i] != nil {
			continue
		}
		vec := vecs[pending[keys[i]]]
		out[i] = vec
		c.put(keys[i], vec)
	}
	c.mu.Unlock()

	return out, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Name implements domain.EmbeddingProvider.
func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// Unwrap returns the wrapped provider.
func (c *CachedEmbedder) Unwrap() domain.EmbeddingProvider { return c.inner }

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func hashText(s string) cacheKey {
	h := fnv.New128a()
	h.Write([]byte(s))
	var k cacheKey
	h.Sum(k[:0])
	return k
}

// put inserts or refreshes key. Caller must hold c.mu.
func (c *CachedEmbedder) put(key cacheKey, vec []float32) {
	if elem, exists := c.cache[key]; exists {
		c.order.MoveToBack(elem)
		elem.Value.(*lruEntry).vec = vec
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.cache, oldest.Value.(*lruEntry).key)
	}

	c.cache[key] = c.order.PushBack(&lruEntry{key: key, vec: vec})
}
