// Package styles holds the TUI palette and shared lipgloss styles.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette, warm dark theme.
const (
	DarkPurple    = lipgloss.Color("#181818")
	Purple        = lipgloss.Color("#5C4F4B")
	BrightPurple  = lipgloss.Color("#724D7C")
	Lavender      = lipgloss.Color("#AEA47A")
	LightLavender = lipgloss.Color("#F3DBB2")
	Pink          = lipgloss.Color("#D33061")
	Cyan          = lipgloss.Color("#3097C6")
	Amber         = lipgloss.Color("#CC8B3F")
	Red           = lipgloss.Color("#AC3835")
	Green         = lipgloss.Color("#A6A75D")
)

// Selection renders the part of the timeline inside the range.
var Selection = lipgloss.NewStyle().Foreground(BrightPurple)

// Track renders the timeline outside the range.
var Track = lipgloss.NewStyle().Foreground(Purple)

// Handle marks a range bound; ActiveHandle is the one being dragged.
var (
	Handle       = lipgloss.NewStyle().Foreground(Pink).Bold(true)
	ActiveHandle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
)

// Playhead marks the playback position.
var Playhead = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

var Highlight = lipgloss.NewStyle().
	Background(BrightPurple).
	Foreground(LightLavender).
	Bold(true)

var PrimaryText = lipgloss.NewStyle().Foreground(LightLavender)

var SecondaryText = lipgloss.NewStyle().Foreground(Lavender)

var Warning = lipgloss.NewStyle().Foreground(Red).Bold(true)

var Success = lipgloss.NewStyle().Foreground(Green).Bold(true)
