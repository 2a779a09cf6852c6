package workbook

import (
	"errors"
	"fmt"
)

// ErrNoActiveWorkbook is returned when an operation needs an open workbook and none is open
var ErrNoActiveWorkbook = errors.New("no active workbook, open one with open_excel_file first")

// WorkbookError is a failed open, create, activate, save or close
type WorkbookError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *WorkbookError) Error() string {
	return fmt.Sprintf("cannot %s workbook %s: %v", e.Operation, e.Path, e.Cause)
}

func (e *WorkbookError) Unwrap() error {
	return e.Cause
}

// SheetNotFoundError names a worksheet missing from the workbook, with the
// closest existing names
type SheetNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *SheetNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("worksheet '%s' not found", e.Name)
	}
	return fmt.Sprintf("worksheet '%s' not found, did you mean: %s?", e.Name, quoteAll(e.Suggestions))
}

// RangeError is a failed read, write or expand of cells. Range is in A1 form.
type RangeError struct {
	Operation string
	Range     string
	Cause     error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Operation, e.Range, e.Cause)
}

func (e *RangeError) Unwrap() error {
	return e.Cause
}

// ValidationError is a bad tool argument
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == nil || e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s '%v': %s", e.Field, e.Value, e.Message)
}
