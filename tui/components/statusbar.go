package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/tui/layout"
	"github.com/user/rangeclip/tui/styles"
)

// StatusBarState is the playback summary on the top line.
type StatusBarState struct {
	Title     string
	Playing   bool
	Capturing bool
	Position  float64
	Duration  float64
	Start     float64
	End       float64
}

// StatusBar renders the status line: play state, position and title on the
// left, the selected range on the right.
func StatusBar(state StatusBarState, width int) string {
	icon := "⏸"
	if state.Playing {
		icon = "▶"
	}
	if state.Capturing {
		icon = "●"
	}
	title := state.Title
	if title == "" {
		title = "no source"
	}

	left := fmt.Sprintf(" %s %s / %s  ", icon, timeutil.FormatTime(state.Position), timeutil.FormatTime(state.Duration))
	right := fmt.Sprintf("[%s, %s) %.1fs ", timeutil.FormatPrecise(state.Start), timeutil.FormatPrecise(state.End), state.End-state.Start)
	room := width - lipgloss.Width(left) - lipgloss.Width(right)
	content := left + layout.PadToWidth(layout.Truncate(title, max(0, room)), max(0, room)) + right

	return lipgloss.NewStyle().
		Background(styles.DarkPurple).
		Foreground(styles.LightLavender).
		Bold(true).
		Width(width).
		Render(content)
}
