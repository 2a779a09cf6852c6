package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet limits
const (
	MaxRows    = excelize.TotalRows
	MaxColumns = excelize.MaxColumns
)

var (
	columnBounds      = fmt.Sprintf("column number must be between 1 and %d", MaxColumns)
	rowBounds         = fmt.Sprintf("row number must be between 1 and %d", MaxRows)
	invalidCellFormat = "invalid cell reference format, expected e.g. 'A1'"
)

// Cell is a 1-based column/row coordinate
type Cell struct {
	Col int
	Row int
}

// String returns the A1-style name of the cell
func (c Cell) String() string {
	name, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", c.Row, c.Col)
	}
	return name
}

// Offset returns the cell shifted by the given number of columns and rows
func (c Cell) Offset(cols, rows int) Cell {
	return Cell{Col: c.Col + cols, Row: c.Row + rows}
}

// Range is a rectangular block of cells. Start is always the top-left corner.
type Range struct {
	Start Cell
	End   Cell
}

// Rows returns the number of rows spanned by the range
func (r Range) Rows() int { return r.End.Row - r.Start.Row + 1 }

// Cols returns the number of columns spanned by the range
func (r Range) Cols() int { return r.End.Col - r.Start.Col + 1 }

// Cells returns the total number of cells in the range
func (r Range) Cells() int { return r.Rows() * r.Cols() }

// IsSingle reports whether the range covers exactly one cell
func (r Range) IsSingle() bool { return r.Start == r.End }

// String returns the A1-style reference, e.g. "A1:C3" or "B5" for a single cell
func (r Range) String() string {
	if r.IsSingle() {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}

// NewRange builds a range from two corners in any order
func NewRange(a, b Cell) Range {
	return Range{
		Start: Cell{Col: min(a.Col, b.Col), Row: min(a.Row, b.Row)},
		End:   Cell{Col: max(a.Col, b.Col), Row: max(a.Row, b.Row)},
	}
}

// ColumnName converts a 1-based column number to its letters (1 -> A, 27 -> AA)
func ColumnName(col int) (string, error) {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "", &AddressError{Ref: fmt.Sprint(col), Message: columnBounds, Err: err}
	}
	return name, nil
}

// ColumnNumber converts column letters to a 1-based column number (A -> 1, XFD -> 16384)
func ColumnNumber(letters string) (int, error) {
	if letters == "" {
		return 0, &AddressError{Ref: letters, Message: "column letters cannot be empty"}
	}

	col, err := excelize.ColumnNameToNumber(letters)
	if err != nil {
		if errors.Is(err, excelize.ErrColumnNumber) {
			return 0, &AddressError{Ref: letters, Message: columnBounds, Err: err}
		}
		return 0, &AddressError{Ref: letters, Message: "invalid column letters", Err: err}
	}
	return col, nil
}

// ParseCell parses an A1-style reference. Lower case letters and '$' markers are accepted.
func ParseCell(ref string) (Cell, error) {
	s := strings.TrimSpace(ref)
	if s == "" {
		return Cell{}, &AddressError{Ref: ref, Message: "cell reference cannot be empty"}
	}
	// excelize reads the row with Atoi, which accepts a sign
	if strings.ContainsAny(s, "+-") {
		return Cell{}, &AddressError{Ref: ref, Message: invalidCellFormat}
	}

	col, row, err := excelize.CellNameToCoordinates(s)
	switch {
	case errors.Is(err, excelize.ErrMaxRows):
		return Cell{}, &AddressError{Ref: ref, Message: rowBounds, Err: err}
	case errors.Is(err, excelize.ErrColumnNumber):
		return Cell{}, &AddressError{Ref: ref, Message: columnBounds, Err: err}
	case err != nil:
		return Cell{}, &AddressError{Ref: ref, Message: invalidCellFormat, Err: err}
	}
	return Cell{Col: col, Row: row}, nil
}

// ParseRange parses "A1:C3", a single cell "B5", or either form prefixed with "Sheet!".
// The returned range is normalised so Start is the top-left corner.
func ParseRange(ref string) (Range, error) {
	s := strings.TrimSpace(ref)
	if s == "" {
		return Range{}, &AddressError{Ref: ref, Message: "range cannot be empty"}
	}
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[i+1:]
	}

	first, second, isPair := strings.Cut(s, ":")
	start, err := ParseCell(first)
	if err != nil {
		return Range{}, err
	}
	if !isPair {
		return Range{Start: start, End: start}, nil
	}

	end, err := ParseCell(second)
	if err != nil {
		return Range{}, err
	}
	return NewRange(start, end), nil
}

// StartCell returns the top-left cell of a range reference
func StartCell(ref string) (Cell, error) {
	rng, err := ParseRange(ref)
	if err != nil {
		return Cell{}, err
	}
	return rng.Start, nil
}

// AddressError reports an invalid cell or range reference
type AddressError struct {
	Ref     string
	Message string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid address '%s': %s", e.Ref, e.Message)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}
