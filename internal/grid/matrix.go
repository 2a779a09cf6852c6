package grid

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Matrix is a rectangular block of display strings, row-major
type Matrix [][]string

// Rows returns the number of rows
func (m Matrix) Rows() int { return len(m) }

// Cols returns the width of the widest row
func (m Matrix) Cols() int {
	width := 0
	for _, row := range m {
		width = max(width, len(row))
	}
	return width
}

// Clone returns a deep copy of the matrix
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Rectangular pads every row with empty strings to the widest row
func (m Matrix) Rectangular() Matrix {
	width := m.Cols()
	out := make(Matrix, len(m))
	for i, row := range m {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// Normalise resolves the scalar / row / matrix ambiguity of range values.
// A scalar becomes a 1x1 matrix, a flat list a single row and a list of lists
// an MxN matrix. nil values become empty strings and ragged rows are padded.
func Normalise(v any) Matrix {
	if v == nil {
		return Matrix{{""}}
	}

	switch typed := v.(type) {
	case Matrix:
		return typed.Rectangular()
	case [][]string:
		return Matrix(typed).Rectangular()
	case []string:
		return Matrix{append([]string(nil), typed...)}
	}

	outer := reflect.ValueOf(v)
	if !isList(outer) {
		return Matrix{{Display(v)}}
	}
	if outer.Len() == 0 {
		return Matrix{}
	}

	// A list is a matrix only when every element is itself a list
	nested := true
	for i := 0; i < outer.Len(); i++ {
		if !isList(elem(outer, i)) {
			nested = false
			break
		}
	}

	if !nested {
		row := make([]string, outer.Len())
		for i := range row {
			row[i] = Display(valueOf(elem(outer, i)))
		}
		return Matrix{row}
	}

	m := make(Matrix, outer.Len())
	for i := range m {
		inner := elem(outer, i)
		row := make([]string, inner.Len())
		for j := range row {
			row[j] = Display(valueOf(elem(inner, j)))
		}
		m[i] = row
	}
	return m.Rectangular()
}

// Display renders a single cell value as the string a user would see
func Display(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		if typed {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return formatFloat(typed)
	case float32:
		return formatFloat(float64(typed))
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format(time.DateOnly)
		}
		return typed.Format(time.DateTime)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// formatFloat prints the shortest round-trip form, positional for decimal
// exponents in [-4, 16) and scientific otherwise. Whole numbers carry no ".0".
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isList(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func elem(v reflect.Value, i int) reflect.Value {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	e := v.Index(i)
	if e.Kind() == reflect.Interface {
		e = e.Elem()
	}
	return e
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
