package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func newTestAnalyzer(t *testing.T, llm domain.LLMProvider, ex domain.TextExtractor) *Analyzer {
	t.Helper()
	emb := &stubEmbedder{def: []float32{1, 0, 0}}
	det, err := NewAIDetector(llm, testPrompts(), nil, testLogger(), nil)
	require.NoError(t, err)
	return &Analyzer{
		Similarity: NewSimilarityService(staticSource{p: emb}, testLogger(), nil),
		Detector:   det,
		Comparator: NewComparator(llm, testPrompts(), nil, testLogger(), nil),
		Extractor:  ex,
	}
}

func TestAnalyzerLocalRequiresBothTexts(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)
	for _, pair := range [][2]string{{"", "b"}, {"a", ""}, {"  ", "b"}, {"a", "\n\t"}} {
		_, err := a.Local(context.Background(), pair[0], pair[1])
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, MsgBothTextsRequired, ve.Msg)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestAnalyzerLocal(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)
	res, err := a.Local(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, domain.RiskHigh, res.Risk)
}

func TestAnalyzerDetailed(t *testing.T) {
	llm := &recordingLLM{reply: "They match."}
	a := newTestAnalyzer(t, llm, nil)

	res, err := a.Detailed(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, domain.RiskHigh, res.Risk)
	assert.Equal(t, "They match.", res.Analysis.Text)
	assert.False(t, res.Analysis.Failed())
}

func TestAnalyzerDetailedWithoutProvider(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)
	res, err := a.Detailed(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, res.Risk)
	assert.Equal(t, MissingKeyAnalysis, res.Analysis.Text)
	assert.False(t, a.RemoteConfigured())
}

func TestAnalyzerDetailedEmbeddingFailure(t *testing.T) {
	a := newTestAnalyzer(t, &recordingLLM{reply: "ok"}, nil)
	a.Similarity = NewSimilarityService(staticSource{err: errLoad}, testLogger(), nil)

	_, err := a.Detailed(context.Background(), "x", "y")
	assert.ErrorIs(t, err, errLoad)
}

func TestAnalyzerDetectAI(t *testing.T) {
	llm := &recordingLLM{reply: `{"ai_probability": 70, "verdict": "Mixed", "reasoning": "r"}`}
	a := newTestAnalyzer(t, llm, nil)

	_, err := a.DetectAI(context.Background(), " ")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgTextRequired, ve.Msg)
	assert.Empty(t, llm.calls())

	res, err := a.DetectAI(context.Background(), "essay")
	require.NoError(t, err)
	assert.Equal(t, 70, res.AIProbability)
}

func TestAnalyzerDetectAIFile(t *testing.T) {
	llm := &recordingLLM{reply: `{"ai_probability": 5, "verdict": "Likely Human", "reasoning": "r"}`}

	t.Run("ok", func(t *testing.T) {
		a := newTestAnalyzer(t, llm, stubExtractor{text: "extracted words"})
		res, err := a.DetectAIFile(context.Background(), "essay.txt", []byte("raw"))
		require.NoError(t, err)
		assert.Equal(t, 5, res.AIProbability)
	})

	t.Run("empty document", func(t *testing.T) {
		a := newTestAnalyzer(t, llm, stubExtractor{})
		_, err := a.DetectAIFile(context.Background(), "blank.docx", nil)
		assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	})

	t.Run("unsupported", func(t *testing.T) {
		a := newTestAnalyzer(t, llm, stubExtractor{err: &domain.UnsupportedFormatError{Ext: ".pdf"}})
		_, err := a.DetectAIFile(context.Background(), "x.pdf", nil)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})
}

func TestAnalyzerAuditsLocal(t *testing.T) {
	audit := &recordingAudit{}
	a := newTestAnalyzer(t, nil, nil)
	a.Audit = audit

	_, err := a.Local(context.Background(), "héllo", "world!")
	require.NoError(t, err)
	_, err = a.Local(context.Background(), "", "world")
	require.Error(t, err)

	events := audit.all()
	require.Len(t, events, 2)

	ok := events[0]
	assert.Equal(t, domain.AuditSimilarityLocal, ok.Operation)
	assert.Equal(t, domain.AuditOutcomeOK, ok.Outcome)
	assert.Equal(t, "5", ok.Detail["chars_a"])
	assert.Equal(t, "6", ok.Detail["chars_b"])
	assert.Equal(t, "High", ok.Detail["risk_level"])
	assert.Equal(t, "1", ok.Detail["similarity_score"])

	rejected := events[1]
	assert.Equal(t, domain.AuditOutcomeRejected, rejected.Outcome)
	assert.Equal(t, string(domain.CodeInvalidInput), rejected.Detail["error_code"])
	assert.NotContains(t, rejected.Detail, "risk_level")
}

func TestAnalyzerAuditsEmbeddingFailure(t *testing.T) {
	audit := &recordingAudit{}
	a := newTestAnalyzer(t, nil, nil)
	a.Similarity = NewSimilarityService(staticSource{err: errLoad}, testLogger(), nil)
	a.Audit = audit

	_, err := a.Detailed(context.Background(), "x", "y")
	require.Error(t, err)

	events := audit.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuditSimilarityDetailed, events[0].Operation)
	assert.Equal(t, domain.AuditOutcomeFailed, events[0].Outcome)
	assert.NotContains(t, events[0].Detail, "analysis_failed")
}

func TestAnalyzerAuditsDetection(t *testing.T) {
	audit := &recordingAudit{}
	llm := &recordingLLM{reply: `{"ai_probability": 80, "verdict": "Likely AI", "reasoning": "uniform"}`}
	a := newTestAnalyzer(t, llm, stubExtractor{text: "extracted words"})
	a.Audit = audit

	_, err := a.DetectAIFile(context.Background(), "Essay.DOCX", []byte("raw"))
	require.NoError(t, err)

	events := audit.all()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, domain.AuditAIDetect, e.Operation)
	assert.Equal(t, domain.AuditOutcomeOK, e.Outcome)
	assert.Equal(t, ".docx", e.Detail["file_ext"])
	assert.Equal(t, "3", e.Detail["bytes"])
	assert.Equal(t, "15", e.Detail["chars"])
	assert.Equal(t, domain.VerdictAI, e.Detail["verdict"])
	assert.Equal(t, "80", e.Detail["ai_probability"])
}

func TestAnalyzerAuditsMissingProviderAsFailed(t *testing.T) {
	audit := &recordingAudit{}
	a := newTestAnalyzer(t, nil, nil)
	a.Audit = audit

	res, err := a.DetectAI(context.Background(), "some text")
	require.NoError(t, err)
	assert.True(t, res.Failed())

	events := audit.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuditOutcomeFailed, events[0].Outcome)
	assert.Equal(t, domain.VerdictError, events[0].Detail["verdict"])
}

func TestAnalyzerAuditFailureDoesNotFailAnalysis(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)
	a.Audit = &recordingAudit{err: domain.ErrAuditWrite}
	a.Logger = testLogger()

	res, err := a.Local(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, res.Risk)
}
