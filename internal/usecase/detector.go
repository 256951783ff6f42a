package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
	"semanticheck/internal/infra/metrics"
	"semanticheck/internal/infra/tracer"
)

// Reasoning strings of the failure shapes.
const (
	MissingKeyReasoning = "Gemini API Key not found."
	analysisFailedFmt   = "Analysis failed: %v"
)

// verdictSchema is what the detector accepts from the model. Extra keys are
// ignored.
const verdictSchema = `{
	"type": "object",
	"required": ["ai_probability", "verdict", "reasoning"],
	"properties": {
		"ai_probability": {"type": "number", "minimum": 0, "maximum": 100},
		"verdict": {"type": "string", "minLength": 1},
		"reasoning": {"type": "string"}
	}
}`

// codeFenceRe matches a markdown code fence opening the reply. The closing
// fence is optional since truncated replies often lack it.
var codeFenceRe = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*(?:```)?$")

// AIDetector asks a remote model whether a text was machine-written.
type AIDetector struct {
	llm     domain.LLMProvider // nil when no credential is configured
	prompts *PromptSet
	schema  *jsonschema.Schema
	budget  *TokenBudget
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAIDetector creates a detector. provider may be nil, in which case every
// call returns the missing-credential failure without network I/O.
func NewAIDetector(provider domain.LLMProvider, prompts *PromptSet, budget *TokenBudget, logger *slog.Logger, m *metrics.Metrics) (*AIDetector, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(verdictSchema))
	if err != nil {
		return nil, fmt.Errorf("compile verdict schema: %w", err)
	}
	return &AIDetector{
		llm:     provider,
		prompts: prompts,
		schema:  schema,
		budget:  budget,
		logger:  logger,
		metrics: m,
	}, nil
}

// Configured reports whether a remote model is available.
func (d *AIDetector) Configured() bool { return d.llm != nil }

// ClassifyAI makes one remote call and returns the parsed verdict. It never
// returns an error: every failure becomes the failure shape of
// domain.AIDetectionResult.
func (d *AIDetector) ClassifyAI(ctx context.Context, text string) domain.AIDetectionResult {
	log := logger.FromContext(ctx, d.logger)

	if d.llm == nil {
		d.metrics.RecordAIVerdict(domain.VerdictError)
		return domain.AIDetectionFailure(domain.ErrCredentialMissing, MissingKeyReasoning)
	}

	ctx, span := tracer.StartSpan(ctx, "detector.classify")
	defer span.End()

	result, err := d.classify(ctx, text)
	if err != nil {
		tracer.RecordError(span, err)
		log.Warn("ai detection failed", "provider", d.llm.Name(), "error", err)
		d.metrics.RecordAIVerdict(domain.VerdictError)
		return domain.AIDetectionFailure(err, fmt.Sprintf(analysisFailedFmt, err))
	}

	span.SetAttributes(
		tracer.IntAttr("detector.ai_probability", result.AIProbability),
		tracer.StringAttr("detector.verdict", result.Verdict),
	)
	tracer.SetOK(span)
	d.metrics.RecordAIVerdict(result.Verdict)
	log.Debug("ai detection complete", "probability", result.AIProbability, "verdict", result.Verdict)
	return result
}

func (d *AIDetector) classify(ctx context.Context, text string) (domain.AIDetectionResult, error) {
	if err := d.budget.Check(text); err != nil {
		return domain.AIDetectionResult{}, err
	}

	start := time.Now()
	resp, err := d.llm.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: d.prompts.DetectorPrompt(text)}},
		JSONMode: true,
	})
	d.metrics.RecordLLMCall("detect", time.Since(start), err)
	if err != nil {
		return domain.AIDetectionResult{}, err
	}

	return d.parse(resp.Message.Content)
}

// parse strips an optional code fence, decodes the JSON object and checks it
// against the verdict schema.
func (d *AIDetector) parse(reply string) (domain.AIDetectionResult, error) {
	body := StripCodeFence(reply)
	if body == "" {
		return domain.AIDetectionResult{}, fmt.Errorf("%w: empty reply", domain.ErrMalformedResponse)
	}

	var data any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return domain.AIDetectionResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if res := d.schema.Validate(data); !res.IsValid() {
		return domain.AIDetectionResult{}, fmt.Errorf("%w: %s", domain.ErrMalformedResponse, res.Error())
	}

	obj := data.(map[string]any)
	return domain.AIDetectionResult{
		AIProbability: int(math.Round(obj["ai_probability"].(float64))),
		Verdict:       obj["verdict"].(string),
		Reasoning:     obj["reasoning"].(string),
	}, nil
}

// StripCodeFence removes a leading ``` or ```json fence and its closing
// fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
