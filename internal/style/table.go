package style

import (
	"strings"
)

// Alignment controls how a cell is padded within its column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Column defines one fixed-width table column.
type Column struct {
	Name  string
	Width int
	Align Alignment
}

// Table renders fixed-width columnar output for command listings.
type Table struct {
	columns   []Column
	rows      [][]string
	headerSep bool
	indent    string
}

// NewTable creates a table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:   columns,
		headerSep: true,
		indent:    "  ",
	}
}

// SetIndent sets the prefix printed before every line.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator toggles the rule between header and rows.
func (t *Table) SetHeaderSeparator(on bool) *Table {
	t.headerSep = on
	return t
}

// AddRow appends a row. Missing trailing cells are padded with empty
// strings; extra cells are dropped.
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.columns))
	for i := range t.columns {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.rows = append(t.rows, row)
	return t
}

// Render produces the full table as a string, one trailing newline per line.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(t.indent)
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString("  ")
		}
		name := truncate(col.Name, col.Width)
		b.WriteString(t.pad(headerStyle.Render(name), name, col.Width, col.Align))
	}
	b.WriteByte('\n')

	if t.headerSep {
		width := 0
		for i, col := range t.columns {
			if i > 0 {
				width += 2
			}
			width += col.Width
		}
		b.WriteString(t.indent)
		b.WriteString(mutedStyle.Render(strings.Repeat("─", width)))
		b.WriteByte('\n')
	}

	for _, row := range t.rows {
		b.WriteString(t.indent)
		for i, col := range t.columns {
			if i > 0 {
				b.WriteString("  ")
			}
			cell := row[i]
			plain := stripAnsi(cell)
			if plain == cell {
				cell = truncate(cell, col.Width)
				plain = cell
			}
			b.WriteString(t.pad(cell, plain, col.Width, col.Align))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// pad aligns styled text within width, measuring by the plain (unstyled)
// text so ANSI codes do not throw off the layout.
func (t *Table) pad(styled, plain string, width int, align Alignment) string {
	gap := width - len(plain)
	if gap <= 0 {
		return styled
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + styled
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", gap-left)
	default:
		return styled + strings.Repeat(" ", gap)
	}
}

// truncate shortens s to fit width, marking the cut with "...".
func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// stripAnsi removes ANSI escape sequences for width calculations.
func stripAnsi(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
