package layout

import "strings"

// SplitWidths divides total cells into n columns separated by gap cells.
// The last column takes the remainder.
func SplitWidths(total, n, gap int) []int {
	if n <= 0 {
		return nil
	}
	usable := total - gap*(n-1)
	if usable < n {
		usable = n
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = usable / n
	}
	widths[n-1] += usable % n
	return widths
}

// JoinColumns places pre-rendered blocks side by side. Each is normalized to
// height lines and padded to its width; sep goes between columns.
func JoinColumns(columns []string, widths []int, height int, sep string) string {
	colLines := make([][]string, len(columns))
	for i, col := range columns {
		colLines[i] = NormalizeLines(strings.Split(col, "\n"), height)
	}

	rows := make([]string, 0, height)
	for row := range height {
		parts := make([]string, len(colLines))
		for i, lines := range colLines {
			parts[i] = PadToWidth(lines[row], widths[i])
		}
		rows = append(rows, strings.Join(parts, sep))
	}
	return strings.Join(rows, "\n")
}
