// Package components renders the TUI building blocks.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/rangeclip/tui/layout"
	"github.com/user/rangeclip/tui/styles"
)

// RenderInfoBox wraps contentLines in a rounded border with a tab header:
//
//	╭─ Title ────╮
//	│content     │
//	╰────────────╯
func RenderInfoBox(title string, contentLines []string, width int) string {
	if width < 4 {
		return ""
	}
	inner := width - 2
	border := lipgloss.NewStyle().Foreground(styles.Purple)
	header := lipgloss.NewStyle().Foreground(styles.Pink).Bold(true).Render(" " + title + " ")

	fill := inner - 1 - lipgloss.Width(header)
	if fill < 0 {
		fill = 0
	}
	lines := make([]string, 0, len(contentLines)+2)
	lines = append(lines, border.Render("╭─")+header+border.Render(strings.Repeat("─", fill)+"╮"))
	for _, line := range contentLines {
		lines = append(lines, border.Render("│")+layout.PadToWidth(line, inner)+border.Render("│"))
	}
	lines = append(lines, border.Render("╰"+strings.Repeat("─", inner)+"╯"))
	return strings.Join(lines, "\n")
}
