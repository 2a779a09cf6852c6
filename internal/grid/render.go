package grid

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Supported table formats
const (
	FormatPlain  = "plain"
	FormatSimple = "simple"
	FormatGrid   = "grid"
	FormatPipe   = "pipe"
	FormatGithub = "github"
	FormatPSQL   = "psql"
	FormatRST    = "rst"
	FormatTSV    = "tsv"
	FormatHTML   = "html"
)

// minHeaderPadding is the extra width every column gets over its header text
const minHeaderPadding = 2

// line describes a horizontal rule: begin + fill*width (sep between columns) + end
type line struct {
	begin, fill, sep, end string
}

// dataRow describes how cells of one line are joined
type dataRow struct {
	begin, sep, end string
}

type tableFormat struct {
	lineAbove       *line
	lineBelowHeader *line
	lineBetweenRows *line
	lineBelow       *line
	headerRow       dataRow
	row             dataRow
	padding         int
	// hideWithHeaders lists rules that are omitted when the table has headers
	hideAboveWithHeaders bool
	hideBelowWithHeaders bool
	// colonRules renders rules as markdown alignment markers
	colonRules bool
}

var formats = map[string]tableFormat{
	FormatPlain: {
		headerRow: dataRow{"", "  ", ""},
		row:       dataRow{"", "  ", ""},
	},
	FormatSimple: {
		lineAbove:            &line{"", "-", "  ", ""},
		lineBelowHeader:      &line{"", "-", "  ", ""},
		lineBelow:            &line{"", "-", "  ", ""},
		headerRow:            dataRow{"", "  ", ""},
		row:                  dataRow{"", "  ", ""},
		hideAboveWithHeaders: true,
		hideBelowWithHeaders: true,
	},
	FormatGrid: {
		lineAbove:       &line{"+", "-", "+", "+"},
		lineBelowHeader: &line{"+", "=", "+", "+"},
		lineBetweenRows: &line{"+", "-", "+", "+"},
		lineBelow:       &line{"+", "-", "+", "+"},
		headerRow:       dataRow{"|", "|", "|"},
		row:             dataRow{"|", "|", "|"},
		padding:         1,
	},
	FormatPipe: {
		lineAbove:            &line{"|", "-", "|", "|"},
		lineBelowHeader:      &line{"|", "-", "|", "|"},
		headerRow:            dataRow{"|", "|", "|"},
		row:                  dataRow{"|", "|", "|"},
		padding:              1,
		hideAboveWithHeaders: true,
		colonRules:           true,
	},
	FormatGithub: {
		lineAbove:            &line{"|", "-", "|", "|"},
		lineBelowHeader:      &line{"|", "-", "|", "|"},
		headerRow:            dataRow{"|", "|", "|"},
		row:                  dataRow{"|", "|", "|"},
		padding:              1,
		hideAboveWithHeaders: true,
	},
	FormatPSQL: {
		lineAbove:       &line{"+", "-", "+", "+"},
		lineBelowHeader: &line{"|", "-", "+", "|"},
		lineBelow:       &line{"+", "-", "+", "+"},
		headerRow:       dataRow{"|", "|", "|"},
		row:             dataRow{"|", "|", "|"},
		padding:         1,
	},
	FormatRST: {
		lineAbove:       &line{"", "=", "  ", ""},
		lineBelowHeader: &line{"", "=", "  ", ""},
		lineBelow:       &line{"", "=", "  ", ""},
		headerRow:       dataRow{"", "  ", ""},
		row:             dataRow{"", "  ", ""},
	},
}

// Formats returns the names of all supported table formats, sorted
func Formats() []string {
	names := []string{FormatTSV, FormatHTML}
	for name := range formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsFormat reports whether name is a supported table format
func IsFormat(name string) bool {
	return slices.Contains(Formats(), name)
}

// Render formats the table as text. A bare single-cell table renders as its value.
func Render(t Table, format string) (string, error) {
	if t.Bare {
		return t.Value, nil
	}
	if format == "" {
		format = FormatPlain
	}

	switch format {
	case FormatTSV:
		return renderTSV(t), nil
	case FormatHTML:
		return renderHTML(t), nil
	}

	tf, ok := formats[format]
	if !ok {
		return "", fmt.Errorf("unsupported table format '%s', expected one of: %s", format, strings.Join(Formats(), ", "))
	}
	return renderAligned(t, tf), nil
}

func renderAligned(t Table, tf tableFormat) string {
	cols := t.Columns()
	headers := padRow(t.Headers, cols)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = padRow(row, cols)
	}
	hasHeaders := len(t.Headers) > 0

	numeric := make([]bool, cols)
	widths := make([]int, cols)
	for c := range cols {
		numeric[c] = isNumericColumn(rows, c)
		if hasHeaders {
			widths[c] = runewidth.StringWidth(headers[c]) + minHeaderPadding
		}
		for _, row := range rows {
			widths[c] = max(widths[c], runewidth.StringWidth(row[c]))
		}
	}

	var lines []string
	if tf.lineAbove != nil && !(hasHeaders && tf.hideAboveWithHeaders) {
		lines = append(lines, ruleLine(*tf.lineAbove, widths, numeric, tf))
	}
	if hasHeaders {
		lines = append(lines, formatRow(tf.headerRow, headers, widths, numeric, tf.padding))
		if tf.lineBelowHeader != nil {
			lines = append(lines, ruleLine(*tf.lineBelowHeader, widths, numeric, tf))
		}
	}
	for i, row := range rows {
		if i > 0 && tf.lineBetweenRows != nil {
			lines = append(lines, ruleLine(*tf.lineBetweenRows, widths, numeric, tf))
		}
		lines = append(lines, formatRow(tf.row, row, widths, numeric, tf.padding))
	}
	if tf.lineBelow != nil && !(hasHeaders && tf.hideBelowWithHeaders) {
		lines = append(lines, ruleLine(*tf.lineBelow, widths, numeric, tf))
	}

	if tf.padding == 0 {
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " ")
		}
	}
	return strings.Join(lines, "\n")
}

func ruleLine(l line, widths []int, numeric []bool, tf tableFormat) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		total := w + 2*tf.padding
		if tf.colonRules && total > 1 {
			if numeric[i] {
				parts[i] = strings.Repeat("-", total-1) + ":"
			} else {
				parts[i] = ":" + strings.Repeat("-", total-1)
			}
			continue
		}
		parts[i] = strings.Repeat(l.fill, total)
	}
	return l.begin + strings.Join(parts, l.sep) + l.end
}

func formatRow(dr dataRow, cells []string, widths []int, numeric []bool, padding int) string {
	pad := strings.Repeat(" ", padding)
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if numeric[i] {
			parts[i] = pad + runewidth.FillLeft(cell, widths[i]) + pad
		} else {
			parts[i] = pad + runewidth.FillRight(cell, widths[i]) + pad
		}
	}
	return dr.begin + strings.Join(parts, dr.sep) + dr.end
}

func renderTSV(t Table) string {
	var b strings.Builder
	if len(t.Headers) > 0 {
		b.WriteString(strings.Join(t.Headers, "\t"))
	}
	for i, row := range t.Rows {
		if i > 0 || len(t.Headers) > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row, "\t"))
	}
	return b.String()
}

func renderHTML(t Table) string {
	cols := t.Columns()
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = padRow(row, cols)
	}

	var b strings.Builder
	b.WriteString("<table>\n")
	if len(t.Headers) > 0 {
		b.WriteString("<thead>\n<tr>")
		for c, h := range padRow(t.Headers, cols) {
			b.WriteString(htmlCell("th", h, isNumericColumn(rows, c)))
		}
		b.WriteString("</tr>\n</thead>\n")
	}
	b.WriteString("<tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for c, cell := range row {
			b.WriteString(htmlCell("td", cell, isNumericColumn(rows, c)))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>")
	return b.String()
}

func htmlCell(tag, text string, numeric bool) string {
	align := "left"
	if numeric {
		align = "right"
	}
	return fmt.Sprintf(`<%s style="text-align: %s;">%s</%s>`, tag, align, html.EscapeString(text), tag)
}

// isNumericColumn reports whether every non-empty body cell in column c is a number
func isNumericColumn(rows [][]string, c int) bool {
	seen := false
	for _, row := range rows {
		if c >= len(row) || strings.TrimSpace(row[c]) == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
