package grid

import "strconv"

// RowHeader labels the synthetic row-number column
const RowHeader = "Row"

// TableOptions controls how a matrix is turned into a table
type TableOptions struct {
	// Headers promotes the first matrix row to the header line
	Headers bool
	// ShowRowNumbers prepends the sheet row number to every row
	ShowRowNumbers bool
	// ShowColAddresses uses column letters (A, B, C…) as headers. Combined
	// with Headers the first row is treated as labels and left out.
	ShowColAddresses bool
}

// DefaultTableOptions mirrors the defaults exposed by the table tools
func DefaultTableOptions() TableOptions {
	return TableOptions{Headers: true, ShowRowNumbers: true, ShowColAddresses: true}
}

// Table is a header line plus body rows ready for rendering.
// When Bare is true the source was a single cell and Value holds it.
type Table struct {
	Headers []string
	Rows    [][]string
	Bare    bool
	Value   string
}

// BuildTable lays out a matrix read from origin (its top-left cell) as a table.
// The input matrix is never modified.
func BuildTable(m Matrix, origin Cell, opts TableOptions) Table {
	if len(m) == 1 && len(m[0]) == 1 {
		return Table{Bare: true, Value: m[0][0]}
	}

	rows := m.Rectangular()
	width := rows.Cols()

	if opts.ShowRowNumbers {
		for i, row := range rows {
			rows[i] = append([]string{strconv.Itoa(origin.Row + i)}, row...)
		}
	}

	switch {
	case opts.ShowColAddresses:
		headers := make([]string, 0, width+1)
		if opts.ShowRowNumbers {
			headers = append(headers, RowHeader)
		}
		for i := range width {
			name, err := ColumnName(origin.Col + i)
			if err != nil {
				name = ""
			}
			headers = append(headers, name)
		}
		if opts.Headers {
			rows = rows[1:]
		}
		return Table{Headers: headers, Rows: rows}

	case opts.Headers && len(rows) > 0:
		headers := append([]string(nil), rows[0]...)
		if opts.ShowRowNumbers {
			headers[0] = RowHeader
		}
		return Table{Headers: headers, Rows: rows[1:]}

	default:
		return Table{Rows: rows}
	}
}

// Columns returns the number of columns of the widest line in the table
func (t Table) Columns() int {
	width := len(t.Headers)
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	return width
}
