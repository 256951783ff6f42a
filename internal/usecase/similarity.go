package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
	"semanticheck/internal/infra/metrics"
	"semanticheck/internal/infra/tracer"
)

// Risk band thresholds, in percent.
const (
	lowRiskBelow   = 40.0
	highRiskAbove  = 70.0
	scorePrecision = 10000 // four decimal places
)

// EmbeddingSource hands out the shared embedding provider.
type EmbeddingSource interface {
	Get() (domain.EmbeddingProvider, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0, 1]. A zero-norm vector on either side, or a non-finite component
// that makes the cosine undefined, scores 0. Vectors of different
// length are rejected with *domain.DimensionMismatchError.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Left: len(a), Right: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0, nil
	}
	return math.Max(0, math.Min(1, score)), nil
}

// ClassifyRisk maps a similarity score to its risk band. Both 40% and 70%
// belong to Medium.
func ClassifyRisk(score float64) domain.RiskLevel {
	p := score * 100
	switch {
	case p < lowRiskBelow:
		return domain.RiskLow
	case p <= highRiskAbove:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// RoundScore rounds a score to four decimal places for presentation.
func RoundScore(score float64) float64 {
	return math.Round(score*scorePrecision) / scorePrecision
}

// SimilarityService scores two texts with the shared embedding provider.
type SimilarityService struct {
	embeddings EmbeddingSource
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewSimilarityService creates a SimilarityService. m may be nil.
func NewSimilarityService(embeddings EmbeddingSource, logger *slog.Logger, m *metrics.Metrics) *SimilarityService {
	return &SimilarityService{embeddings: embeddings, logger: logger, metrics: m}
}

// Analyze normalizes both texts, embeds them in one batch and scores them.
// The risk band is taken from the exact score; the returned score is rounded.
func (s *SimilarityService) Analyze(ctx context.Context, textA, textB string) (domain.SimilarityResult, error) {
	ctx, span := tracer.StartSpan(ctx, "similarity.score")
	defer span.End()

	vecs, err := s.embed(ctx, []string{Normalize(textA), Normalize(textB)})
	if err != nil {
		tracer.RecordError(span, err)
		return domain.SimilarityResult{}, domain.WrapOp("SimilarityService.Analyze", err)
	}

	score, err := CosineSimilarity(vecs[0], vecs[1])
	if err != nil {
		tracer.RecordError(span, err)
		return domain.SimilarityResult{}, domain.WrapOp("SimilarityService.Analyze", err)
	}

	risk := ClassifyRisk(score)
	s.metrics.RecordSimilarity(risk, score)
	span.SetAttributes(
		tracer.Float64Attr("similarity.score", score),
		tracer.StringAttr("similarity.risk", string(risk)),
	)
	tracer.SetOK(span)

	logger.FromContext(ctx, s.logger).Debug("similarity scored", "score", score, "risk", risk)
	return domain.SimilarityResult{Score: RoundScore(score), Risk: risk}, nil
}

// Provider returns the name of the loaded embedding provider, or "" when it
// failed to load.
func (s *SimilarityService) Provider() string {
	p, err := s.embeddings.Get()
	if err != nil {
		return ""
	}
	return p.Name()
}

func (s *SimilarityService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	provider, err := s.embeddings.Get()
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "embedding.embed")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("embedding.provider", provider.Name()),
		tracer.IntAttr("embedding.batch", len(texts)),
	)

	start := time.Now()
	vecs, err := provider.Embed(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbeddingFailed, len(vecs), len(texts))
	}
	s.metrics.RecordEmbedding(provider.Name(), time.Since(start), err)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return vecs, nil
}
