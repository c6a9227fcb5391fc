package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/rangeclip/tui/styles"
)

// HelpGroup is a titled set of key bindings.
type HelpGroup struct {
	Title    string
	Bindings []key.Binding
}

// HelpOverlay renders every binding grouped by function, centred in a
// width x height screen.
func HelpOverlay(groups []HelpGroup, width, height int) string {
	titleStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true).Padding(0, 1)
	groupStyle := lipgloss.NewStyle().Foreground(styles.Pink).Bold(true).MarginTop(1)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Lavender).Bold(true).Width(14)
	descStyle := lipgloss.NewStyle().Foreground(styles.LightLavender)

	lines := []string{titleStyle.Render("Keybindings"), ""}
	for _, g := range groups {
		lines = append(lines, groupStyle.Render(g.Title))
		for _, b := range g.Bindings {
			h := b.Help()
			lines = append(lines, "  "+keyStyle.Render(h.Key)+descStyle.Render(h.Desc))
		}
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(styles.Lavender).Italic(true).Render("Press any key to close"))

	panel := lipgloss.NewStyle().
		Background(styles.DarkPurple).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.BrightPurple).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel)
}
