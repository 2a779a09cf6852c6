package harness

import (
	"fmt"
	"strings"

	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/workbook"
	"github.com/sirupsen/logrus"
)

// Validation kinds
const (
	CheckCellValue = "cell_value"
	CheckFormula   = "formula"
)

// Validation is a check of one cell of the workbook after the agent ran
type Validation struct {
	Type     string `yaml:"type"`
	Sheet    string `yaml:"sheet"`
	Cell     string `yaml:"cell"`
	Expected any    `yaml:"expected"`
}

func (v Validation) String() string {
	return fmt.Sprintf("%s %s!%s = %v", v.Type, v.Sheet, v.Cell, v.Expected)
}

// ValidateCell reports whether the cell displays the expected value. Numbers
// compare by their display form, so 1 matches a cell holding 1.
func ValidateCell(logger *logrus.Logger, path, sheet, cell string, expected any) (bool, error) {
	actual, err := readCell(logger, path, sheet, cell, false)
	if err != nil {
		return false, err
	}
	return actual == grid.Display(expected), nil
}

// ValidateFormula reports whether the cell's formula contains expected,
// ignoring case and a leading '='
func ValidateFormula(logger *logrus.Logger, path, sheet, cell, expected string) (bool, error) {
	actual, err := readCell(logger, path, sheet, cell, true)
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(actual, "=") {
		return false, nil
	}
	want := strings.ToUpper(strings.TrimPrefix(expected, "="))
	return strings.Contains(strings.ToUpper(actual[1:]), want), nil
}

// Check runs a validation against the workbook at path
func (v Validation) Check(logger *logrus.Logger, path string) (bool, error) {
	switch v.Type {
	case CheckCellValue:
		return ValidateCell(logger, path, v.Sheet, v.Cell, v.Expected)
	case CheckFormula:
		return ValidateFormula(logger, path, v.Sheet, v.Cell, grid.Display(v.Expected))
	default:
		return false, fmt.Errorf("unknown validation type '%s'", v.Type)
	}
}

// readCell opens the workbook from disk and reads one cell
func readCell(logger *logrus.Logger, path, sheetName, ref string, formula bool) (string, error) {
	cell, err := grid.ParseCell(ref)
	if err != nil {
		return "", err
	}

	app := workbook.New(logger, workbook.Options{})
	defer func() { _ = app.Close() }()

	book, err := app.Open(path)
	if err != nil {
		return "", err
	}
	sheet, err := book.Sheet(sheetName)
	if err != nil {
		return "", err
	}
	if formula {
		return sheet.Formula(cell)
	}
	return sheet.Value(cell)
}
