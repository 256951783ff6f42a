package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestObserveHTTP(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveHTTP("POST", "/analyze/local", 200, 10*time.Millisecond)
	m.ObserveHTTP("POST", "/analyze/local", 200, 20*time.Millisecond)
	m.ObserveHTTP("POST", "/analyze/local", 400, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/analyze/local", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/analyze/local", "400")))
}

func TestRecordSimilarity(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordSimilarity(domain.RiskHigh, 0.93)
	m.RecordSimilarity(domain.RiskLow, 0.1)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.similarityTotal.WithLabelValues("High")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.similarityTotal.WithLabelValues("Low")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.similarityScore))
}

func TestRecordLLMCall(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordLLMCall("detect", time.Second, nil)
	m.RecordLLMCall("detect", time.Second, domain.ErrCredentialMissing)
	m.RecordLLMCall("compare", time.Second, errors.New("opaque"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.llmCallsTotal.WithLabelValues("detect", "success", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.llmCallsTotal.WithLabelValues("detect", "error", "CREDENTIAL_MISSING")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.llmCallsTotal.WithLabelValues("compare", "error", "UNKNOWN")))
}

func TestRecordEmbeddingAndVerdict(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordEmbedding("local", time.Millisecond, nil)
	m.RecordEmbedding("ollama", time.Millisecond, errors.New("down"))
	m.RecordAIVerdict(domain.VerdictAI)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.embeddingErrors.WithLabelValues("local")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.embeddingErrors.WithLabelValues("ollama")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.aiVerdictsTotal.WithLabelValues("Likely AI")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.RecordSimilarity(domain.RiskLow, 0)
	m.RecordAIVerdict("x")
	m.RecordLLMCall("detect", 0, nil)
	m.RecordEmbedding("local", 0, nil)
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)
	_, err = New(registry)
	assert.Error(t, err)
}

func TestHandlerExposition(t *testing.T) {
	m, err := New(NewRegistry())
	require.NoError(t, err)
	m.RecordSimilarity(domain.RiskMedium, 0.5)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.True(t, strings.Contains(out, `semanticheck_similarity_comparisons_total{risk_level="Medium"} 1`), out)
	assert.Contains(t, out, "go_goroutines")
}
