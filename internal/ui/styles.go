package ui

import (
	"github.com/charmbracelet/lipgloss"

	"genreel/internal/progress"
)

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	JobTitle lipgloss.Style
	JobInfo  lipgloss.Style
	Selected lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Faint    lipgloss.Style
	Box      lipgloss.Style
	Player   lipgloss.Style
	Spinner  lipgloss.Style
}

func DefaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title:    base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Subtitle: base.Faint(true),
		Header:   base.Bold(true),
		JobTitle: base.Foreground(lipgloss.Color("#A3A3A3")),
		JobInfo:  base.Foreground(lipgloss.Color("#D1D5DB")),
		Selected: base.Bold(true).Foreground(lipgloss.Color("#22D3EE")),
		Success:  base.Foreground(lipgloss.Color("#22C55E")),
		Error:    base.Foreground(lipgloss.Color("#EF4444")),
		Warning:  base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:    base.Faint(true),
		Box:      base.Padding(0, 1),
		Player:   base.Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4B5563")).Padding(0, 1),
		Spinner:  base.Foreground(lipgloss.Color("#22D3EE")),
	}
}

// Stage colors text with the descriptor's hex color, falling back to JobInfo.
func (s Styles) Stage(d progress.StageDescriptor) lipgloss.Style {
	if d.Color == "" {
		return s.JobInfo
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(d.Color))
}
