// Package ascii renders aligned text boxes and tables for terminal reports. Widths are
// display widths, so service names and paths with CJK or emoji stay aligned.
package ascii

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Box builds a box containing the provided lines and returns it as a string.
// Lines are left-aligned with single-space padding on each side.
func Box(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	trimmed := make([]string, len(lines))
	maxWidth := 0
	for i, line := range lines {
		trimmed[i] = strings.TrimRight(line, " ")
		if w := StringWidth(trimmed[i]); w > maxWidth {
			maxWidth = w
		}
	}

	innerWidth := maxWidth + 2
	border := strings.Repeat("─", innerWidth)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	for _, line := range trimmed {
		sb.WriteString("│ " + Pad(line, maxWidth) + " │\n")
	}
	sb.WriteString("└" + border + "┘\n")
	return sb.String()
}

// Table renders rows as columns separated by two spaces. The first row is the header
// and is underlined. Columns wider than maxWidth are truncated; zero means no limit.
func Table(rows [][]string, maxWidth int) string {
	if len(rows) == 0 {
		return ""
	}

	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	widths := make([]int, cols)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = make([]string, cols)
		for j := range cols {
			v := ""
			if j < len(r) {
				v = r[j]
			}
			if maxWidth > 0 {
				v = Truncate(v, maxWidth)
			}
			cells[i][j] = v
			widths[j] = max(widths[j], StringWidth(v))
		}
	}

	var sb strings.Builder
	writeRow := func(r []string) {
		var line strings.Builder
		for j, v := range r {
			if j > 0 {
				line.WriteString("  ")
			}
			line.WriteString(Pad(v, widths[j]))
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteByte('\n')
	}

	writeRow(cells[0])
	rule := make([]string, cols)
	for j, w := range widths {
		rule[j] = strings.Repeat("-", w)
	}
	writeRow(rule)
	for _, r := range cells[1:] {
		writeRow(r)
	}
	return sb.String()
}

// Pad right-pads s with spaces to width display columns.
func Pad(s string, width int) string {
	if fill := width - StringWidth(s); fill > 0 {
		return s + strings.Repeat(" ", fill)
	}
	return s
}

// Truncate shortens value to width display columns, ending in "..." when there is room.
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// StringWidth returns the display width of s.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
