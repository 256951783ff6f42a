package usecase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

func defaultPromptsConfig() config.PromptsConfig {
	return config.PromptsConfig{Detector: "ai_detector_prompt.txt", Comparator: "system_prompt.txt"}
}

func TestLoadPromptsEmbedded(t *testing.T) {
	p, err := LoadPrompts(defaultPromptsConfig())
	require.NoError(t, err)
	assert.Contains(t, p.Detector, TextMarker)
	assert.NotContains(t, p.Comparator, TextMarker)
	for _, key := range []string{"ai_probability", "verdict", "reasoning"} {
		assert.Contains(t, p.Detector, key)
	}
}

func TestLoadPromptsFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.txt"), []byte("Judge: {{TEXT}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("Compare."), 0o644))

	p, err := LoadPrompts(config.PromptsConfig{Dir: dir, Detector: "d.txt", Comparator: "c.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Judge: hello", p.DetectorPrompt("hello"))
	assert.Equal(t, "Compare.", p.Comparator)
}

func TestLoadPromptsMissingFile(t *testing.T) {
	_, err := LoadPrompts(config.PromptsConfig{Dir: t.TempDir(), Detector: "nope.txt", Comparator: "c.txt"})
	assert.ErrorIs(t, err, domain.ErrPromptTemplate)
}

func TestNewPromptSetValidation(t *testing.T) {
	tests := []struct {
		name                 string
		detector, comparator string
	}{
		{"detector without marker", "classify", "compare"},
		{"empty comparator", "x {{TEXT}}", "  \n"},
		{"comparator with marker", "x {{TEXT}}", "compare {{TEXT}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPromptSet(tt.detector, tt.comparator)
			assert.ErrorIs(t, err, domain.ErrPromptTemplate)
		})
	}
}

func TestDetectorPromptReplacesEveryMarker(t *testing.T) {
	p, err := NewPromptSet("A {{TEXT}} B {{TEXT}}", "c")
	require.NoError(t, err)
	got := p.DetectorPrompt("z")
	assert.Equal(t, "A z B z", got)
	assert.False(t, strings.Contains(got, TextMarker))
}
