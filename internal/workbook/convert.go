package workbook

import (
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Formula is formula text without the leading '='
type Formula string

// Coerce interprets typed text the way the spreadsheet application does when
// a user enters it into a cell:
//
//	"=SUM(A1:A3)" -> Formula("SUM(A1:A3)")
//	"42", "-1.5e3" -> float64
//	"TRUE", "false" -> bool
//	"'007"         -> "007" (a leading apostrophe forces text)
//	""             -> nil (clears the cell)
//
// Anything else is kept as text.
func Coerce(s string) any {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return nil
	case strings.HasPrefix(s, "'"):
		return s[1:]
	case len(trimmed) > 1 && trimmed[0] == '=':
		return Formula(trimmed[1:])
	case strings.EqualFold(trimmed, "TRUE"):
		return true
	case strings.EqualFold(trimmed, "FALSE"):
		return false
	}

	if isNumeric(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	return s
}

// isNumeric rejects the forms strconv accepts that a spreadsheet does not,
// such as hex floats, digit separators, "Inf" and "NaN".
func isNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}

// setCell writes a display string to a cell, coercing it first
func setCell(f *excelize.File, sheet, ref, value string) error {
	coerced := Coerce(value)

	if _, isFormula := coerced.(Formula); !isFormula {
		// Replacing a formula with a constant must drop the formula
		if existing, err := f.GetCellFormula(sheet, ref); err == nil && existing != "" {
			if err := f.SetCellFormula(sheet, ref, ""); err != nil {
				return err
			}
		}
	}

	switch v := coerced.(type) {
	case nil:
		return f.SetCellValue(sheet, ref, nil)
	case Formula:
		return f.SetCellFormula(sheet, ref, string(v))
	case float64:
		return f.SetCellFloat(sheet, ref, v, -1, 64)
	case bool:
		return f.SetCellBool(sheet, ref, v)
	case string:
		return f.SetCellStr(sheet, ref, v)
	default:
		return f.SetCellValue(sheet, ref, v)
	}
}
