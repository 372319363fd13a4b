// Package diff computes and renders line diffs between a published object and its
// replacement.
package diff

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of a diff part.
type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

// Part is a run of whole lines sharing one Op.
type Part struct {
	Op    Op
	Lines []string
}

// Lines diffs before and after line by line.
func Lines(before, after string) []Part {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	parts := make([]Part, 0, len(diffs))
	for _, d := range diffs {
		p := Part{Lines: splitLines(d.Text)}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			p.Op = Insert
		case diffmatchpatch.DiffDelete:
			p.Op = Delete
		default:
			p.Op = Equal
		}
		parts = append(parts, p)
	}
	return parts
}

// Changed reports whether any part inserts or deletes lines.
func Changed(parts []Part) bool {
	for _, p := range parts {
		if p.Op != Equal {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

// Renderer prints diff parts with a +/-/space prefix, colored when Color is set.
type Renderer struct {
	Color bool
}

var (
	insertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	equalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Render returns the diff as text, one line per diffed line.
func (r Renderer) Render(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		prefix, style := "  ", equalStyle
		switch p.Op {
		case Insert:
			prefix, style = "+ ", insertStyle
		case Delete:
			prefix, style = "- ", deleteStyle
		}
		for _, line := range p.Lines {
			text := prefix + line
			if r.Color {
				text = style.Render(text)
			}
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
