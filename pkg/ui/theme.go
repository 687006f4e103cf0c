package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors and styles the grid view renders with. Styles are
// created from Renderer so output adapts to the terminal it is written to.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor

	Selected lipgloss.Style
	Footer   lipgloss.Style
	Header   lipgloss.Style
}

// DefaultTheme returns the standard palette bound to r. A nil renderer uses
// lipgloss's default one.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F1FA8C"},
		Muted:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0A7E8C", Dark: "#8BE9FD"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#44475A"},
	}
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E6E0FF", Dark: "#44475A"}).
		Bold(true)
	t.Footer = r.NewStyle().Foreground(t.Secondary).Italic(true)
	t.Header = r.NewStyle().Foreground(t.Primary).Bold(true)
	return t
}
