package forms

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/rangeclip/tui/styles"
)

// Theme returns a huh theme in the TUI palette.
func Theme() *huh.Theme {
	t := huh.ThemeBase()
	text := lipgloss.NewStyle().Foreground(styles.LightLavender)
	dim := lipgloss.NewStyle().Foreground(styles.Lavender)
	faint := lipgloss.NewStyle().Foreground(styles.Purple)
	accent := lipgloss.NewStyle().Foreground(styles.Cyan)

	t.Focused.Base = t.Focused.Base.
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(styles.BrightPurple).
		PaddingLeft(1)
	t.Focused.Title = lipgloss.NewStyle().Foreground(styles.Pink).Bold(true)
	t.Focused.Description = dim
	t.Focused.ErrorIndicator = lipgloss.NewStyle().Foreground(styles.Pink).Bold(true)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(styles.Pink)
	t.Focused.TextInput.Cursor = accent
	t.Focused.TextInput.Prompt = accent
	t.Focused.TextInput.Placeholder = faint
	t.Focused.TextInput.Text = text
	t.Focused.FocusedButton = lipgloss.NewStyle().
		Background(styles.BrightPurple).
		Foreground(styles.LightLavender).
		Bold(true).
		Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().
		Background(styles.Purple).
		Foreground(styles.Lavender).
		Padding(0, 1)
	t.Focused.Next = t.Focused.FocusedButton

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Title = dim
	t.Blurred.Description = faint
	t.Blurred.TextInput.Text = dim
	return t
}
