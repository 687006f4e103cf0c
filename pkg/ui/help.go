package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// helpText is the key reference shown by '?'.
const helpText = `Navigation
  ↑/k ↓/j       move cursor
  pgup pgdn     move one screen
  home/g end/G  first / last row

Rows
  enter space   expand or collapse group
  E / C         expand / collapse all
  s             toggle selection
  y             copy selected row ids
  d             toggle detail panel

  ?             close this help
  q             quit`

// RenderHelp renders the key reference as a bordered modal that fits width.
func RenderHelp(theme Theme, width int) string {
	r := theme.Renderer

	modalWidth := 48
	if width > 0 && modalWidth > width-4 {
		modalWidth = max(width-4, 20)
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(helpText))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Press any key to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return modalStyle.Render(b.String())
}
