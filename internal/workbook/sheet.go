package workbook

import (
	"fmt"

	"github.com/sammcj/mcp-excel/internal/grid"
)

// Sheet is a worksheet of an open workbook
type Sheet struct {
	book *Book
	name string
}

// Name returns the worksheet name as stored in the workbook
func (s *Sheet) Name() string {
	return s.name
}

// Value returns the display value of a cell. Formula cells are calculated.
func (s *Sheet) Value(cell grid.Cell) (string, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	v, err := s.valueLocked(cell)
	if err != nil {
		return "", &RangeError{Operation: "read", Range: cell.String(), Cause: err}
	}
	return v, nil
}

// Formula returns the formula of a cell with its leading '=', or the display
// value when the cell holds a constant.
func (s *Sheet) Formula(cell grid.Cell) (string, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	v, err := s.formulaLocked(cell)
	if err != nil {
		return "", &RangeError{Operation: "read formula", Range: cell.String(), Cause: err}
	}
	return v, nil
}

// Values reads a range as a matrix of display values
func (s *Sheet) Values(rng grid.Range) (grid.Matrix, error) {
	return s.read(rng, "read", s.valueLocked)
}

// Formulas reads a range as a matrix of formulas, falling back to values for constant cells
func (s *Sheet) Formulas(rng grid.Range) (grid.Matrix, error) {
	return s.read(rng, "read formulas", s.formulaLocked)
}

// Expand grows a single cell into its data region: down while the cell below
// in the start column is filled, then right while the cell to the right in
// the start row is filled.
func (s *Sheet) Expand(start grid.Cell) (grid.Range, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	end := start
	for end.Row < grid.MaxRows {
		empty, err := s.emptyLocked(grid.Cell{Col: start.Col, Row: end.Row + 1})
		if err != nil {
			return grid.Range{}, &RangeError{Operation: "expand", Range: start.String(), Cause: err}
		}
		if empty {
			break
		}
		end.Row++
	}
	for end.Col < grid.MaxColumns {
		empty, err := s.emptyLocked(grid.Cell{Col: end.Col + 1, Row: start.Row})
		if err != nil {
			return grid.Range{}, &RangeError{Operation: "expand", Range: start.String(), Cause: err}
		}
		if empty {
			break
		}
		end.Col++
	}

	return grid.Range{Start: start, End: end}, nil
}

// Write enters a value into a single cell. See Coerce for how text is interpreted.
func (s *Sheet) Write(cell grid.Cell, value string) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	if err := setCell(s.book.file, s.name, cell.String(), value); err != nil {
		return &RangeError{Operation: "write", Range: cell.String(), Cause: err}
	}
	return s.book.changedLocked()
}

// WriteMatrix enters a block of values with its top-left corner at start.
// An empty matrix writes nothing.
func (s *Sheet) WriteMatrix(start grid.Cell, m grid.Matrix) error {
	rows, cols := m.Rows(), m.Cols()
	if rows == 0 || cols == 0 {
		return nil
	}

	end := start.Offset(cols-1, rows-1)
	target := grid.Range{Start: start, End: end}
	if end.Row > grid.MaxRows || end.Col > grid.MaxColumns {
		return &RangeError{Operation: "write", Range: start.String(), Cause: fmt.Errorf("%dx%d values do not fit on the sheet", rows, cols)}
	}
	if err := s.checkSize(target); err != nil {
		return &RangeError{Operation: "write", Range: target.String(), Cause: err}
	}

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	for i, row := range m.Rectangular() {
		for j, value := range row {
			cell := start.Offset(j, i)
			if err := setCell(s.book.file, s.name, cell.String(), value); err != nil {
				return &RangeError{Operation: "write", Range: cell.String(), Cause: err}
			}
		}
	}
	return s.book.changedLocked()
}

func (s *Sheet) read(rng grid.Range, operation string, cellFn func(grid.Cell) (string, error)) (grid.Matrix, error) {
	if err := s.checkSize(rng); err != nil {
		return nil, &RangeError{Operation: operation, Range: rng.String(), Cause: err}
	}

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	m := make(grid.Matrix, rng.Rows())
	for i := range m {
		row := make([]string, rng.Cols())
		for j := range row {
			v, err := cellFn(rng.Start.Offset(j, i))
			if err != nil {
				return nil, &RangeError{Operation: operation, Range: rng.String(), Cause: err}
			}
			row[j] = v
		}
		m[i] = row
	}
	return m, nil
}

func (s *Sheet) checkSize(rng grid.Range) error {
	if limit := s.book.maxCells; limit > 0 && rng.Cells() > limit {
		return fmt.Errorf("range covers %d cells, the limit is %d", rng.Cells(), limit)
	}
	return nil
}

func (s *Sheet) valueLocked(cell grid.Cell) (string, error) {
	f := s.book.file
	ref := cell.String()

	formula, err := f.GetCellFormula(s.name, ref)
	if err != nil {
		return "", err
	}
	if formula != "" {
		v, err := f.CalcCellValue(s.name, ref)
		if err == nil {
			return v, nil
		}
		s.book.logger.WithError(err).WithField("cell", ref).Debug("Formula calculation failed, using cached value")
	}
	return f.GetCellValue(s.name, ref)
}

func (s *Sheet) formulaLocked(cell grid.Cell) (string, error) {
	formula, err := s.book.file.GetCellFormula(s.name, cell.String())
	if err != nil {
		return "", err
	}
	if formula != "" {
		return "=" + formula, nil
	}
	return s.valueLocked(cell)
}

func (s *Sheet) emptyLocked(cell grid.Cell) (bool, error) {
	formula, err := s.book.file.GetCellFormula(s.name, cell.String())
	if err != nil {
		return false, err
	}
	if formula != "" {
		return false, nil
	}
	v, err := s.book.file.GetCellValue(s.name, cell.String())
	if err != nil {
		return false, err
	}
	return v == "", nil
}
