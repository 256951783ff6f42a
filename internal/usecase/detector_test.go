package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func newTestDetector(t *testing.T, llm domain.LLMProvider) *AIDetector {
	t.Helper()
	d, err := NewAIDetector(llm, testPrompts(), nil, testLogger(), nil)
	require.NoError(t, err)
	return d
}

func TestClassifyAI(t *testing.T) {
	llm := &recordingLLM{reply: `{"ai_probability": 85, "verdict": "Likely AI", "reasoning": "Uniform tone."}`}
	d := newTestDetector(t, llm)

	res := d.ClassifyAI(context.Background(), "some essay")
	require.False(t, res.Failed(), "unexpected failure: %s", res.Reasoning)
	assert.Equal(t, 85, res.AIProbability)
	assert.Equal(t, domain.VerdictAI, res.Verdict)
	assert.Equal(t, "Uniform tone.", res.Reasoning)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSONMode)
	require.Len(t, calls[0].Messages, 1)
	assert.Equal(t, domain.RoleUser, calls[0].Messages[0].Role)
	assert.Equal(t, "Classify this:\nsome essay", calls[0].Messages[0].Content)
}

func TestClassifyAIFencedReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"json fence", "```json\n{\"ai_probability\": 10, \"verdict\": \"Likely Human\", \"reasoning\": \"Personal.\"}\n```"},
		{"bare fence", "```\n{\"ai_probability\": 10, \"verdict\": \"Likely Human\", \"reasoning\": \"Personal.\"}\n```"},
		{"upper case tag", "```JSON {\"ai_probability\": 10, \"verdict\": \"Likely Human\", \"reasoning\": \"Personal.\"} ```"},
		{"unclosed fence", "```json\n{\"ai_probability\": 10, \"verdict\": \"Likely Human\", \"reasoning\": \"Personal.\"}"},
		{"padded", "  \n{\"ai_probability\": 10, \"verdict\": \"Likely Human\", \"reasoning\": \"Personal.\"}\n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, &recordingLLM{reply: tt.reply})
			res := d.ClassifyAI(context.Background(), "text")
			require.False(t, res.Failed(), res.Reasoning)
			assert.Equal(t, 10, res.AIProbability)
			assert.Equal(t, domain.VerdictHuman, res.Verdict)
		})
	}
}

func TestClassifyAIRoundsProbability(t *testing.T) {
	d := newTestDetector(t, &recordingLLM{reply: `{"ai_probability": 42.6, "verdict": "Mixed", "reasoning": "r", "extra": true}`})
	res := d.ClassifyAI(context.Background(), "text")
	require.False(t, res.Failed(), res.Reasoning)
	assert.Equal(t, 43, res.AIProbability)
	assert.Equal(t, domain.VerdictMixed, res.Verdict)
}

func TestClassifyAIMissingProvider(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	d := newTestDetector(t, nil)
	assert.False(t, d.Configured())

	res := d.ClassifyAI(context.Background(), "text")
	assert.True(t, res.Failed())
	assert.Equal(t, 0, res.AIProbability)
	assert.Equal(t, domain.VerdictError, res.Verdict)
	assert.Equal(t, MissingKeyReasoning, res.Reasoning)
	assert.ErrorIs(t, res.Err, domain.ErrCredentialMissing)
	assert.Zero(t, httpmock.GetTotalCallCount(), "no request may leave the process")
}

func TestClassifyAIFailures(t *testing.T) {
	tests := []struct {
		name  string
		llm   *recordingLLM
		isErr error
	}{
		{"provider error", &recordingLLM{err: domain.ErrRateLimit}, domain.ErrRateLimit},
		{"not json", &recordingLLM{reply: "I think it is AI."}, domain.ErrMalformedResponse},
		{"empty reply", &recordingLLM{reply: "   "}, domain.ErrMalformedResponse},
		{"missing verdict", &recordingLLM{reply: `{"ai_probability": 50, "reasoning": "r"}`}, domain.ErrMalformedResponse},
		{"empty verdict", &recordingLLM{reply: `{"ai_probability": 50, "verdict": "", "reasoning": "r"}`}, domain.ErrMalformedResponse},
		{"probability as string", &recordingLLM{reply: `{"ai_probability": "50", "verdict": "Mixed", "reasoning": "r"}`}, domain.ErrMalformedResponse},
		{"probability out of range", &recordingLLM{reply: `{"ai_probability": 150, "verdict": "Mixed", "reasoning": "r"}`}, domain.ErrMalformedResponse},
		{"array", &recordingLLM{reply: `[1, 2]`}, domain.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, tt.llm)
			res := d.ClassifyAI(context.Background(), "text")
			assert.True(t, res.Failed())
			assert.Equal(t, 0, res.AIProbability)
			assert.Equal(t, domain.VerdictError, res.Verdict)
			assert.True(t, strings.HasPrefix(res.Reasoning, "Analysis failed: "), res.Reasoning)
			assert.ErrorIs(t, res.Err, tt.isErr)
		})
	}
}

func TestClassifyAITokenBudgetDisabled(t *testing.T) {
	llm := &recordingLLM{reply: `{"ai_probability": 1, "verdict": "Likely Human", "reasoning": "r"}`}
	d, err := NewAIDetector(llm, testPrompts(), NewTokenBudget(0, "gpt-4o"), testLogger(), nil)
	require.NoError(t, err)

	res := d.ClassifyAI(context.Background(), strings.Repeat("word ", 10000))
	assert.False(t, res.Failed())
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct{ in, want string }{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  ```json {} ```  ", "{}"},
		{"```json\n{\"a\":\n1}\n```", "{\"a\":\n1}"},
		{"prefix ```json {} ```", "prefix ```json {} ```"},
		{"```json\n{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{}\n", "{}"},
	}
	for _, tt := range tests {
		if got := StripCodeFence(tt.in); got != tt.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
