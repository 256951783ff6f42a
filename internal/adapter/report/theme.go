// Package report renders analysis results for the terminal.
//
// NO_COLOR (https://no-color.org/) is respected by lipgloss's color profile
// detection.
package report

import (
	"github.com/charmbracelet/lipgloss"

	"semanticheck/internal/domain"
)

var (
	ColorLow    = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorMedium = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorHigh   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorInfo   = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	ColorBorder = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)
	Label = lipgloss.NewStyle().Foreground(ColorMuted)
	Value = lipgloss.NewStyle().Bold(true)
	Muted = lipgloss.NewStyle().Faint(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 2)

	textLow    = lipgloss.NewStyle().Foreground(ColorLow).Bold(true)
	textMedium = lipgloss.NewStyle().Foreground(ColorMedium).Bold(true)
	textHigh   = lipgloss.NewStyle().Foreground(ColorHigh).Bold(true)
)

// RiskStyle colours a risk band.
func RiskStyle(risk domain.RiskLevel) lipgloss.Style {
	switch risk {
	case domain.RiskLow:
		return textLow
	case domain.RiskMedium:
		return textMedium
	case domain.RiskHigh:
		return textHigh
	}
	return Value
}

// VerdictStyle colours a classifier verdict the same way as the risk bands.
func VerdictStyle(verdict string) lipgloss.Style {
	switch verdict {
	case domain.VerdictHuman:
		return textLow
	case domain.VerdictMixed:
		return textMedium
	case domain.VerdictAI, domain.VerdictError:
		return textHigh
	}
	return Value
}
