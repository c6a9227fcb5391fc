package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/selection"
	"github.com/user/rangeclip/tui/styles"
)

// Timeline box geometry, relative to the box's top-left corner.
const (
	TimelineHeight = 6
	// TimelineBarRow is the line holding the bar.
	TimelineBarRow = 2
	// TimelineBarX is the column where the bar starts (border + padding).
	TimelineBarX = 2
)

// TimelineState is what the timeline shows.
type TimelineState struct {
	Range    selection.Range
	Position float64
	// Dragging is the handle under the pointer, HandleNone when idle.
	Dragging selection.Handle
}

// TimelineBarWidth returns the bar width for a box of width cells; the
// selection controller maps pointer cells against it.
func TimelineBarWidth(width int) int {
	return max(10, width-2*TimelineBarX)
}

// Cell returns the bar cell that t falls in.
func Cell(t, duration float64, barWidth int) int {
	c := int(math.Floor(selection.SecondsToPixels(t, float64(barWidth), duration)))
	return min(max(c, 0), barWidth-1)
}

// Timeline renders the source timeline with the selected range, its two
// handles and the playhead:
//
//	──────┃██████████┃────●────────
//	      0:00:10.000      0:00:40.000
func Timeline(state TimelineState, width int) string {
	if width < 20 {
		return ""
	}
	r := state.Range
	barWidth := TimelineBarWidth(width)

	var bar strings.Builder
	if r.Duration > 0 {
		start := Cell(r.Start, r.Duration, barWidth)
		end := Cell(r.End, r.Duration, barWidth)
		head := Cell(state.Position, r.Duration, barWidth)
		for i := range barWidth {
			switch {
			case i == start:
				bar.WriteString(handleStyle(state.Dragging, selection.HandleStart).Render("┃"))
			case i == end:
				bar.WriteString(handleStyle(state.Dragging, selection.HandleEnd).Render("┃"))
			case i == head:
				bar.WriteString(styles.Playhead.Render("●"))
			case i > start && i < end:
				if state.Dragging == selection.HandleFrame {
					bar.WriteString(styles.ActiveHandle.Render("█"))
				} else {
					bar.WriteString(styles.Selection.Render("█"))
				}
			default:
				bar.WriteString(styles.Track.Render("─"))
			}
		}
	} else {
		bar.WriteString(styles.Track.Render(strings.Repeat("─", barWidth)))
	}

	labels := rangeLabels(r, barWidth)
	span := styles.SecondaryText.Render(fmt.Sprintf(" span %.1fs of max %.0fs   %s / %s",
		r.Span(), r.MaxSpan, timeutil.FormatTime(state.Position), timeutil.FormatTime(r.Duration)))

	return RenderInfoBox("Timeline", []string{
		" " + labels,
		" " + bar.String(),
		"",
		span,
	}, width)
}

func handleStyle(dragging, h selection.Handle) lipgloss.Style {
	if dragging == h {
		return styles.ActiveHandle
	}
	return styles.Handle
}

// rangeLabels places the start label over the start handle and the end
// label ending at the end handle, sliding them apart when they collide.
func rangeLabels(r selection.Range, barWidth int) string {
	if r.Duration <= 0 {
		return styles.SecondaryText.Render("no source")
	}
	startLabel := timeutil.FormatPrecise(r.Start)
	endLabel := timeutil.FormatPrecise(r.End)
	line := []rune(strings.Repeat(" ", barWidth))

	s := min(Cell(r.Start, r.Duration, barWidth), max(0, barWidth-len(startLabel)))
	e := Cell(r.End, r.Duration, barWidth) - len(endLabel) + 1
	if e < s+len(startLabel)+1 {
		e = s + len(startLabel) + 1
	}
	copy(line[s:], []rune(startLabel))
	if e+len(endLabel) <= barWidth {
		copy(line[e:], []rune(endLabel))
	}
	return styles.PrimaryText.Render(string(line))
}
