// Package demo holds short walkthroughs of the workbook layer that can be run
// against any workbook from the command line.
package demo

import (
	"fmt"
	"io"

	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/workbook"
)

const (
	demoCell  = "Z1"
	demoRange = "Z2:Z4"
	demoValue = "mcp-excel test"
)

// SheetNames prints the numbered sheet names of the active workbook
func SheetNames(w io.Writer, app *workbook.App) error {
	book, err := app.Active()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Sheet names in the active workbook:")
	for i, name := range book.SheetNames() {
		fmt.Fprintf(w, "%d. %s\n", i+1, name)
	}
	return nil
}

// ReadWrite reads from and writes to the first sheet of the active workbook.
// Z1 is restored afterwards, Z2:Z4 keep the test values.
func ReadWrite(w io.Writer, app *workbook.App) error {
	book, err := app.Active()
	if err != nil {
		return err
	}
	sheet, err := book.Sheet(book.SheetNames()[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Working with sheet: %s\n", sheet.Name())

	a1 := grid.Cell{Col: 1, Row: 1}
	value, err := sheet.Value(a1)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current value in A1: %s\n", value)

	block, err := sheet.Values(grid.NewRange(a1, grid.Cell{Col: 3, Row: 3}))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Values in A1:C3:")
	for i, row := range block {
		fmt.Fprintf(w, "  Row %d: %q\n", i+1, row)
	}

	target, err := grid.ParseCell(demoCell)
	if err != nil {
		return err
	}
	// The formula form restores formulas as well as constants
	original, err := sheet.Formula(target)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nOriginal value in %s: %s\n", demoCell, original)

	if err := sheet.Write(target, demoValue); err != nil {
		return err
	}
	fmt.Fprintf(w, "Set %s to: %s\n", demoCell, demoValue)

	updated, err := sheet.Value(target)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Confirmed value in %s: %s\n", demoCell, updated)

	rng, err := grid.ParseRange(demoRange)
	if err != nil {
		return err
	}
	if err := sheet.WriteMatrix(rng.Start, grid.Matrix{{"Test 1"}, {"Test 2"}, {"Test 3"}}); err != nil {
		return err
	}
	fmt.Fprintf(w, "Set %s to test values\n", demoRange)

	written, err := sheet.Values(rng)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Values in %s: %q\n", demoRange, written)

	if err := sheet.Write(target, original); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nRestored %s to original value: %s\n", demoCell, original)
	return nil
}
