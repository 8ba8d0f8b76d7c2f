package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows as aligned columns.
type Table struct {
	Headers  []string
	Rows     [][]string
	MaxWidth int // per column; 0 means unbounded
}

// ColumnWidths returns the display width of each column.
func (t *Table) ColumnWidths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := lipgloss.Width(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	if t.MaxWidth > 0 {
		for i := range widths {
			if widths[i] > t.MaxWidth {
				widths[i] = t.MaxWidth
			}
		}
	}
	return widths
}

func (t *Table) Render() string {
	if len(t.Headers) == 0 {
		return ""
	}
	widths := t.ColumnWidths()
	header := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	var sb strings.Builder
	cells := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		cells[i] = header.Render(pad(h, widths[i]))
	}
	sb.WriteString(strings.Join(cells, "  ") + "\n")

	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = StyleSubtle.Render(strings.Repeat("─", w))
	}
	sb.WriteString(strings.Join(seps, "  ") + "\n")

	for _, row := range t.Rows {
		for i := range t.Headers {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if t.MaxWidth > 0 && lipgloss.Width(val) > t.MaxWidth {
				val = Truncate(val, t.MaxWidth)
			}
			cells[i] = pad(val, widths[i])
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")
	}
	return sb.String()
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
