package components

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/thumbnail"
	"github.com/user/rangeclip/tui/layout"
	"github.com/user/rangeclip/tui/styles"
)

const (
	maxThumbCells = 28
	minThumbCells = 6
)

// ThumbStrip renders a thumbnail set as a row of half-block pictures with
// their offsets underneath. Failed samples render as placeholders.
func ThumbStrip(set thumbnail.Set, selected, width int) string {
	title := "Overview"
	if set.Kind == thumbnail.KindPreview {
		title = "Range preview"
	}
	n := set.Len()
	if n == 0 {
		return RenderInfoBox(title, []string{styles.SecondaryText.Render(" sampling...")}, width)
	}

	widths := layout.SplitWidths(width-2, n, 1)
	cells := min(max(widths[0], minThumbCells), maxThumbCells)
	rows := max(2, cells*9/32)

	columns := make([]string, n)
	for i, th := range set.Thumbnails {
		var pic []string
		if th.Err != nil || len(th.Data) == 0 {
			pic = placeholder(cells, rows)
		} else {
			pic = halfBlocks(th.Data, cells, rows)
		}
		label := timeutil.FormatTime(th.Offset)
		if i == selected {
			label = styles.Highlight.Render(label)
		} else {
			label = styles.SecondaryText.Render(label)
		}
		columns[i] = strings.Join(append(pic, label), "\n")
	}
	strip := layout.JoinColumns(columns, widths, rows+1, " ")

	footer := fmt.Sprintf(" %d frames", n)
	if failed := set.Failed(); failed > 0 {
		footer += styles.Warning.Render(fmt.Sprintf("  %d failed", failed))
	}
	return RenderInfoBox(title, append(strings.Split(strip, "\n"), styles.SecondaryText.Render(footer)), width)
}

func placeholder(cells, rows int) []string {
	out := make([]string, rows)
	for i := range out {
		out[i] = styles.Track.Render(strings.Repeat("░", cells))
	}
	mid := rows / 2
	out[mid] = styles.Track.Render(layout.PadToWidth(strings.Repeat("░", max(0, cells/2-1))+" × ", cells))
	return out
}

// halfBlocks scales a JPEG to cells x 2*rows pixels and draws two pixels per
// cell with "▀" (foreground top, background bottom).
func halfBlocks(data []byte, cells, rows int) []string {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return placeholder(cells, rows)
	}
	dst := image.NewRGBA(image.Rect(0, 0, cells, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := make([]string, rows)
	for y := range rows {
		var line strings.Builder
		for x := range cells {
			top := dst.RGBAAt(x, 2*y)
			bottom := dst.RGBAAt(x, 2*y+1)
			line.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", top.R, top.G, top.B))).
				Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", bottom.R, bottom.G, bottom.B))).
				Render("▀"))
		}
		out[y] = line.String()
	}
	return out
}
