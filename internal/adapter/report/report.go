package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"semanticheck/internal/domain"
)

// DefaultWidth is the wrap width used when none is given.
const DefaultWidth = 80

const barWidth = 20

// Renderer writes results to w, styled or as JSON.
type Renderer struct {
	w     io.Writer
	width int
	json  bool
	md    *glamour.TermRenderer
}

// New creates a Renderer. asJSON switches every method to indented JSON.
func New(w io.Writer, width int, asJSON bool) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{w: w, width: width, json: asJSON}
}

// Similarity prints a local comparison.
func (r *Renderer) Similarity(res domain.SimilarityResult) error {
	if r.json {
		return r.writeJSON(map[string]any{
			"similarity_score": res.Score,
			"risk_level":       res.Risk,
		})
	}
	_, err := fmt.Fprintln(r.w, r.similarityCard(res))
	return err
}

// Detailed prints a comparison followed by the remote analysis.
func (r *Renderer) Detailed(res domain.DetailedResult) error {
	if r.json {
		return r.writeJSON(map[string]any{
			"similarity_score":  res.Score,
			"risk_level":        res.Risk,
			"detailed_analysis": res.Analysis.Text,
		})
	}
	if _, err := fmt.Fprintln(r.w, r.similarityCard(res.SimilarityResult)); err != nil {
		return err
	}
	if res.Analysis.Failed() {
		_, err := fmt.Fprintln(r.w, textHigh.Render(res.Analysis.Text))
		return err
	}
	_, err := fmt.Fprint(r.w, r.Markdown(res.Analysis.Text))
	return err
}

// Detection prints a classifier verdict.
func (r *Renderer) Detection(res domain.AIDetectionResult) error {
	if r.json {
		return r.writeJSON(res)
	}
	card := Card.Render(lipgloss.JoinVertical(lipgloss.Left,
		Title.Render("AI content detection"),
		row("AI probability", Value.Render(fmt.Sprintf("%d%%", res.AIProbability))),
		row("Verdict", VerdictStyle(res.Verdict).Render(res.Verdict)),
	))
	if _, err := fmt.Fprintln(r.w, card); err != nil {
		return err
	}
	if res.Reasoning == "" {
		return nil
	}
	_, err := fmt.Fprint(r.w, r.Markdown("**Reasoning:** "+res.Reasoning))
	return err
}

// Markdown renders md for the terminal, falling back to the raw text.
func (r *Renderer) Markdown(md string) string {
	if r.md == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return md + "\n"
		}
		r.md = tr
	}
	out, err := r.md.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

func (r *Renderer) similarityCard(res domain.SimilarityResult) string {
	return Card.Render(lipgloss.JoinVertical(lipgloss.Left,
		Title.Render("Semantic similarity"),
		row("Score", Value.Render(Percent(res.Score))+"  "+Bar(res.Score, barWidth)),
		row("Risk", RiskStyle(res.Risk).Render(string(res.Risk))),
	))
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func row(label, value string) string {
	return Label.Render(fmt.Sprintf("%-15s", label)) + value
}

// Percent formats a [0,1] score as a whole percentage.
func Percent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}

// Bar draws a fixed-width gauge for a [0,1] score.
func Bar(score float64, width int) string {
	filled := int(math.Round(math.Max(0, math.Min(1, score)) * float64(width)))
	return strings.Repeat("█", filled) + Muted.Render(strings.Repeat("░", width-filled))
}
