package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
)

// Validation messages shown to callers.
const (
	MsgBothTextsRequired = "Both texts must be provided."
	MsgTextRequired      = "Text must be provided."
	MsgNoTextExtracted   = "Could not extract text from file."
)

// Analyzer composes the similarity, detection and comparison services into
// the operations offered by every front end. Audit and Logger are optional.
type Analyzer struct {
	Similarity *SimilarityService
	Detector   *AIDetector
	Comparator *Comparator
	Extractor  domain.TextExtractor
	Audit      domain.AuditLogger
	Logger     *slog.Logger
}

// Local scores two texts with the embedding model only.
func (a *Analyzer) Local(ctx context.Context, textA, textB string) (domain.SimilarityResult, error) {
	res, err := a.local(ctx, textA, textB)
	a.record(ctx, domain.AuditSimilarityLocal, err, a.similarityDetail(textA, textB, res))
	return res, err
}

func (a *Analyzer) local(ctx context.Context, textA, textB string) (domain.SimilarityResult, error) {
	if blank(textA) || blank(textB) {
		return domain.SimilarityResult{}, &domain.ValidationError{Msg: MsgBothTextsRequired}
	}
	return a.Similarity.Analyze(ctx, textA, textB)
}

// Detailed scores two texts and asks the remote model to compare them. The
// two steps run concurrently; a failed comparison is carried in the result.
func (a *Analyzer) Detailed(ctx context.Context, textA, textB string) (domain.DetailedResult, error) {
	res, err := a.detailed(ctx, textA, textB)
	detail := a.similarityDetail(textA, textB, res.SimilarityResult)
	if err == nil {
		detail["analysis_failed"] = strconv.FormatBool(res.Analysis.Failed())
	}
	a.record(ctx, domain.AuditSimilarityDetailed, err, detail)
	return res, err
}

func (a *Analyzer) detailed(ctx context.Context, textA, textB string) (domain.DetailedResult, error) {
	if blank(textA) || blank(textB) {
		return domain.DetailedResult{}, &domain.ValidationError{Msg: MsgBothTextsRequired}
	}

	var res domain.DetailedResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sim, err := a.Similarity.Analyze(gctx, textA, textB)
		res.SimilarityResult = sim
		return err
	})
	g.Go(func() error {
		res.Analysis = a.Comparator.Compare(gctx, textA, textB)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.DetailedResult{}, err
	}
	return res, nil
}

// DetectAI classifies a single text.
func (a *Analyzer) DetectAI(ctx context.Context, text string) (domain.AIDetectionResult, error) {
	detail := map[string]string{"chars": strconv.Itoa(utf8.RuneCountInString(text))}
	if blank(text) {
		err := &domain.ValidationError{Msg: MsgTextRequired}
		a.record(ctx, domain.AuditAIDetect, err, detail)
		return domain.AIDetectionResult{}, err
	}
	return a.classify(ctx, text, detail), nil
}

// DetectAIFile extracts the text of an uploaded document and classifies it.
func (a *Analyzer) DetectAIFile(ctx context.Context, name string, data []byte) (domain.AIDetectionResult, error) {
	detail := map[string]string{
		"file_ext": strings.ToLower(filepath.Ext(name)),
		"bytes":    strconv.Itoa(len(data)),
	}
	text, err := a.ExtractText(name, data)
	if err != nil {
		a.record(ctx, domain.AuditAIDetect, err, detail)
		return domain.AIDetectionResult{}, err
	}
	detail["chars"] = strconv.Itoa(utf8.RuneCountInString(text))
	return a.classify(ctx, text, detail), nil
}

// classify runs the detector and audits its verdict. A failed verdict is
// still a result for the caller, so only the audit trail marks it failed.
func (a *Analyzer) classify(ctx context.Context, text string, detail map[string]string) domain.AIDetectionResult {
	res := a.Detector.ClassifyAI(ctx, text)
	detail["verdict"] = res.Verdict
	detail["ai_probability"] = strconv.Itoa(res.AIProbability)
	a.record(ctx, domain.AuditAIDetect, res.Err, detail)
	return res
}

// ExtractText extracts a document, failing with domain.ErrEmptyDocument when
// it holds no text.
func (a *Analyzer) ExtractText(name string, data []byte) (string, error) {
	text, err := a.Extractor.ExtractText(name, data)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%s: %w", name, domain.ErrEmptyDocument)
	}
	return text, nil
}

// RemoteConfigured reports whether a remote model backs detection and comparison.
func (a *Analyzer) RemoteConfigured() bool { return a.Detector.Configured() }

func (a *Analyzer) similarityDetail(textA, textB string, res domain.SimilarityResult) map[string]string {
	detail := map[string]string{
		"chars_a": strconv.Itoa(utf8.RuneCountInString(textA)),
		"chars_b": strconv.Itoa(utf8.RuneCountInString(textB)),
	}
	if res.Risk != "" {
		detail["similarity_score"] = strconv.FormatFloat(res.Score, 'f', -1, 64)
		detail["risk_level"] = string(res.Risk)
	}
	return detail
}

// record appends an audit event when an audit logger is configured. Audit
// failures are logged and never fail the analysis.
func (a *Analyzer) record(ctx context.Context, op domain.AuditOperation, err error, detail map[string]string) {
	if a.Audit == nil {
		return
	}
	outcome := domain.AuditOutcomeOK
	if err != nil {
		outcome = domain.AuditOutcomeFailed
		if domain.IsClientError(err) {
			outcome = domain.AuditOutcomeRejected
		}
		detail["error_code"] = string(domain.ErrorCodeOf(err))
	}
	event := domain.AuditEvent{Operation: op, Outcome: outcome, Detail: detail}
	if lerr := a.Audit.Log(ctx, event); lerr != nil {
		fallback := a.Logger
		if fallback == nil {
			fallback = slog.Default()
		}
		logger.FromContext(ctx, fallback).Warn("audit write failed", "operation", op, "error", lerr)
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
