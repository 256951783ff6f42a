package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
	"semanticheck/internal/infra/metrics"
	"semanticheck/internal/infra/tracer"
)

// Messages returned in place of the analysis when it cannot be produced.
const (
	MissingKeyAnalysis = "Error: GEMINI_API_KEY not found in environment variables. detailed analysis unavailable."
	analysisErrorFmt   = "Error during LLM analysis: %v"
)

// Comparator asks a remote model for a prose comparison of two texts.
type Comparator struct {
	llm     domain.LLMProvider // nil when no credential is configured
	prompts *PromptSet
	budget  *TokenBudget
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewComparator creates a Comparator. provider may be nil.
func NewComparator(provider domain.LLMProvider, prompts *PromptSet, budget *TokenBudget, logger *slog.Logger, m *metrics.Metrics) *Comparator {
	return &Comparator{llm: provider, prompts: prompts, budget: budget, logger: logger, metrics: m}
}

// Compare sends both raw texts in one call and returns the reply verbatim.
// Failures are reported through the returned value, never as an error.
func (c *Comparator) Compare(ctx context.Context, textA, textB string) domain.ComparativeAnalysis {
	if c.llm == nil {
		return domain.ComparativeAnalysis{Text: MissingKeyAnalysis, Err: domain.ErrCredentialMissing}
	}

	ctx, span := tracer.StartSpan(ctx, "comparator.compare")
	defer span.End()

	text, err := c.compare(ctx, textA, textB)
	if err != nil {
		tracer.RecordError(span, err)
		logger.FromContext(ctx, c.logger).Warn("comparative analysis failed", "provider", c.llm.Name(), "error", err)
		return domain.ComparativeAnalysis{Text: fmt.Sprintf(analysisErrorFmt, err), Err: err}
	}

	span.SetAttributes(tracer.IntAttr("comparator.reply_len", len(text)))
	tracer.SetOK(span)
	return domain.ComparativeAnalysis{Text: text}
}

func (c *Comparator) compare(ctx context.Context, textA, textB string) (string, error) {
	if err := c.budget.Check(c.prompts.Comparator, textA, textB); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := domain.Generate(ctx, c.llm, "", c.prompts.ComparatorPrompt(textA, textB))
	c.metrics.RecordLLMCall("compare", time.Since(start), err)
	return text, err
}
