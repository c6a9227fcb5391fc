package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/rangeclip/session"
)

// tickMsg drives playhead and duration polling.
type tickMsg time.Time

// sessionEventMsg carries one worker completion from the session.
type sessionEventMsg struct {
	ev session.Event
}

// clearStatusMsg clears the status line once its id is still current.
type clearStatusMsg struct {
	id int
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks for the next session event. Update re-issues it after
// every delivery so exactly one read is outstanding.
func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg{ev: <-ch}
	}
}

func clearStatusAfter(id int) tea.Cmd {
	return tea.Tick(statusDisplayDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
