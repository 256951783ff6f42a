package usecase

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

// TextMarker is replaced by the analysed text in the detector template.
const TextMarker = "{{TEXT}}"

//go:embed prompts/*.txt
var defaultPrompts embed.FS

// PromptSet holds the two instruction templates used for remote analysis.
type PromptSet struct {
	Detector   string
	Comparator string
}

// NewPromptSet validates and returns a PromptSet. The detector template must
// contain TextMarker; the comparator template must be non-empty and must not.
func NewPromptSet(detector, comparator string) (*PromptSet, error) {
	if !strings.Contains(detector, TextMarker) {
		return nil, fmt.Errorf("%w: detector template lacks %s", domain.ErrPromptTemplate, TextMarker)
	}
	if strings.TrimSpace(comparator) == "" {
		return nil, fmt.Errorf("%w: comparator template is empty", domain.ErrPromptTemplate)
	}
	if strings.Contains(comparator, TextMarker) {
		return nil, fmt.Errorf("%w: comparator template must not contain %s", domain.ErrPromptTemplate, TextMarker)
	}
	return &PromptSet{Detector: detector, Comparator: comparator}, nil
}

// LoadPrompts reads the templates named in cfg from cfg.Dir, or from the
// templates compiled into the binary when Dir is empty.
func LoadPrompts(cfg config.PromptsConfig) (*PromptSet, error) {
	read := func(name string) ([]byte, error) {
		return defaultPrompts.ReadFile("prompts/" + name)
	}
	if cfg.Dir != "" {
		read = func(name string) ([]byte, error) {
			return os.ReadFile(filepath.Join(cfg.Dir, name))
		}
	}

	detector, err := read(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("%w: read detector template: %v", domain.ErrPromptTemplate, err)
	}
	comparator, err := read(cfg.Comparator)
	if err != nil {
		return nil, fmt.Errorf("%w: read comparator template: %v", domain.ErrPromptTemplate, err)
	}
	return NewPromptSet(string(detector), string(comparator))
}

// DetectorPrompt substitutes text for every marker in the detector template.
func (p *PromptSet) DetectorPrompt(text string) string {
	return strings.ReplaceAll(p.Detector, TextMarker, text)
}

// ComparatorUserPrompt builds the user section carrying both raw texts.
func ComparatorUserPrompt(textA, textB string) string {
	return fmt.Sprintf("Text A:\n\"\"\"%s\"\"\"\n\nText B:\n\"\"\"%s\"\"\"", textA, textB)
}

// ComparatorPrompt is the single prompt sent to the comparator model: the
// comparator template, a blank line, then the two-text section.
func (p *PromptSet) ComparatorPrompt(textA, textB string) string {
	return p.Comparator + "\n\n" + ComparatorUserPrompt(textA, textB)
}
