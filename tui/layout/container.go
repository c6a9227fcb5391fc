package layout

import (
	"strings"

	"github.com/user/rangeclip/tui/styles"
)

// Container fits content into an exact Width x Height box. Content cut off
// at the bottom ends with a scroll hint.
type Container struct {
	Width  int
	Height int
}

func (c Container) Render(content string) string {
	if c.Height <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > c.Height {
		lines = lines[:c.Height]
		lines[c.Height-1] = styles.Track.Render("↓ more")
	}
	lines = NormalizeLines(lines, c.Height)
	for i, line := range lines {
		lines[i] = PadToWidth(line, c.Width)
	}
	return strings.Join(lines, "\n")
}
