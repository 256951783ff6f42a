package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clamps to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"zero norm left", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero norm both", []float32{0, 0}, []float32{0, 0}, 0},
		{"empty", nil, nil, 0},
		{"partial", []float32{1, 1}, []float32{1, 0}, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9, 0.1}
	b := []float32{0.5, 0.4, 0.1, -0.7}
	ab, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := CosineSimilarity(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosineSimilarityNeverExceedsOne(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	got, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestCosineSimilarityNonFinite(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	for _, tc := range []struct{ a, b []float32 }{
		{[]float32{inf, 1}, []float32{1, 1}},
		{[]float32{inf, 1}, []float32{inf, 1}},
		{[]float32{nan, 1}, []float32{1, 1}},
	} {
		score, err := CosineSimilarity(tc.a, tc.b)
		require.NoError(t, err)
		assert.Zero(t, score)
		assert.Equal(t, domain.RiskLow, ClassifyRisk(score))
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	var dm *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Left)
	assert.Equal(t, 3, dm.Right)
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{0.39, domain.RiskLow},
		{0.3999, domain.RiskLow},
		{0.40, domain.RiskMedium},
		{0.55, domain.RiskMedium},
		{0.70, domain.RiskMedium},
		{0.7001, domain.RiskHigh},
		{0.71, domain.RiskHigh},
		{1, domain.RiskHigh},
	}
	for _, tt := range tests {
		if got := ClassifyRisk(tt.score); got != tt.want {
			t.Errorf("ClassifyRisk(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.1235, RoundScore(0.123456))
	assert.Equal(t, 1.0, RoundScore(0.99999))
	assert.Equal(t, 0.0, RoundScore(0))
}

func TestSimilarityServiceAnalyze(t *testing.T) {
	emb := &stubEmbedder{
		vectors: map[string][]float32{
			"the cat sat": {1, 0, 0},
			"a cat sat":   {1, 1, 0},
		},
		def: []float32{0, 0, 1},
	}
	svc := NewSimilarityService(staticSource{p: emb}, testLogger(), nil)

	res, err := svc.Analyze(context.Background(), "  the\tcat  sat ", "a cat\nsat")
	require.NoError(t, err)
	assert.Equal(t, RoundScore(1/math.Sqrt2), res.Score)
	assert.Equal(t, domain.RiskHigh, res.Risk)

	// Both texts are normalized and embedded in a single batch.
	require.Len(t, emb.seen, 1)
	assert.Equal(t, []string{"the cat sat", "a cat sat"}, emb.seen[0])
}

func TestSimilarityServiceIdenticalTexts(t *testing.T) {
	emb := &stubEmbedder{def: []float32{0.2, 0.4, 0.1}}
	svc := NewSimilarityService(staticSource{p: emb}, testLogger(), nil)

	res, err := svc.Analyze(context.Background(), "same", "same")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, domain.RiskHigh, res.Risk)
}

func TestSimilarityServiceRiskFromExactScore(t *testing.T) {
	// cos = 0.700004..., rounds to 0.7 but is strictly above the Medium band.
	a := []float32{1, 0}
	b := []float32{0.700004, float32(math.Sqrt(1 - 0.700004*0.700004))}
	emb := &stubEmbedder{vectors: map[string][]float32{"a": a, "b": b}, def: a}
	svc := NewSimilarityService(staticSource{p: emb}, testLogger(), nil)

	res, err := svc.Analyze(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0.7, res.Score)
	assert.Equal(t, domain.RiskHigh, res.Risk)
}

func TestSimilarityServiceLoadFailure(t *testing.T) {
	svc := NewSimilarityService(staticSource{err: errLoad}, testLogger(), nil)

	_, err := svc.Analyze(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errLoad))
	assert.Empty(t, svc.Provider())
}

func TestSimilarityServiceEmbedFailure(t *testing.T) {
	emb := &stubEmbedder{err: domain.ErrEmbeddingFailed}
	svc := NewSimilarityService(staticSource{p: emb}, testLogger(), nil)

	_, err := svc.Analyze(context.Background(), "a", "b")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	assert.Equal(t, "stub", svc.Provider())
}

func TestSimilarityServiceMismatchedVectors(t *testing.T) {
	emb := &stubEmbedder{
		vectors: map[string][]float32{"short": {1, 0}},
		def:     []float32{1, 0, 0},
	}
	svc := NewSimilarityService(staticSource{p: emb}, testLogger(), nil)

	_, err := svc.Analyze(context.Background(), "short", "long")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
