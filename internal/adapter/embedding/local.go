package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

// LocalModelName identifies the in-process model and its feature layout.
// Bump it whenever the features or weights below change.
const LocalModelName = config.LocalEmbeddingModel

// Feature weights for the hashed bag-of-features model.
const (
	wordWeight    = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.35
)

var _ domain.EmbeddingProvider = (*LocalProvider)(nil)

// LocalProvider is an in-process embedding model that needs no weights or
// network. Text is lowercased and split into words; each word, each adjacent
// word pair and each character trigram of a word is hashed into a signed
// bucket, and the accumulated vector is L2-normalized.
//
// Output is a pure function of the input and the dimension count, so vectors
// are stable across processes.
type LocalProvider struct {
	dims int
}

// NewLocalProvider creates a LocalProvider producing dims-length vectors.
func NewLocalProvider(dims int) (*LocalProvider, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: local model needs positive dimensions, got %d", domain.ErrEmbeddingFailed, dims)
	}
	return &LocalProvider{dims: dims}, nil
}

// Embed implements domain.EmbeddingProvider.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (p *LocalProvider) Dimensions() int { return p.dims }

// Name implements domain.EmbeddingProvider.
func (p *LocalProvider) Name() string { return "local" }

// Model returns LocalModelName.
func (p *LocalProvider) Model() string { return LocalModelName }

func (p *LocalProvider) vector(text string) []float32 {
	acc := make([]float64, p.dims)
	words := tokenize(text)

	for i, w := range words {
		p.add(acc, "w:"+w, wordWeight)
		if i > 0 {
			p.add(acc, "b:"+words[i-1]+" "+w, bigramWeight)
		}
		padded := []rune("^" + w + "$")
		for j := 0; j+3 <= len(padded); j++ {
			p.add(acc, "c:"+string(padded[j:j+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, p.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// add hashes feature into a bucket. The top bit of the hash picks the sign so
// that collisions tend to cancel instead of accumulate.
func (p *LocalProvider) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(p.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

// tokenize lowercases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
