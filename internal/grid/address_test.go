package grid_test

import (
	"testing"

	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestColumnName(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{grid.MaxColumns, "XFD"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := grid.ColumnName(tt.col)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := grid.ColumnNumber(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.col, back)
		})
	}
}

func TestColumnName_OutOfBounds(t *testing.T) {
	for _, col := range []int{0, -1, grid.MaxColumns + 1} {
		_, err := grid.ColumnName(col)
		require.Error(t, err)

		var addrErr *grid.AddressError
		assert.ErrorAs(t, err, &addrErr)
		assert.ErrorIs(t, err, excelize.ErrColumnNumber)
	}
}

func TestColumnNumber_Invalid(t *testing.T) {
	for _, letters := range []string{"", "A1", "XFE", "ZZZZ", "é"} {
		_, err := grid.ColumnNumber(letters)
		assert.Error(t, err, letters)
	}

	col, err := grid.ColumnNumber("ab")
	require.NoError(t, err)
	assert.Equal(t, 28, col)
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		ref  string
		want grid.Cell
	}{
		{"A1", grid.Cell{Col: 1, Row: 1}},
		{"b2", grid.Cell{Col: 2, Row: 2}},
		{"$C$10", grid.Cell{Col: 3, Row: 10}},
		{" AA100 ", grid.Cell{Col: 27, Row: 100}},
		{"XFD1048576", grid.Cell{Col: grid.MaxColumns, Row: grid.MaxRows}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := grid.ParseCell(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCell_Invalid(t *testing.T) {
	tests := []struct {
		ref     string
		message string
	}{
		{"", "cannot be empty"},
		{"A", "invalid cell reference format"},
		{"12", "invalid cell reference format"},
		{"1A", "invalid cell reference format"},
		{"A1B", "invalid cell reference format"},
		{"A0", "invalid cell reference format"},
		{"A-1", "invalid cell reference format"},
		{"A+1", "invalid cell reference format"},
		{"ZZ999999", "row number must be between"},
		{"XFE1", "column number must be between"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := grid.ParseCell(tt.ref)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), "invalid address")
		})
	}

	_, err := grid.ParseCell("A1048577")
	assert.ErrorIs(t, err, excelize.ErrMaxRows)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		ref        string
		want       string
		rows, cols int
	}{
		{"A1:C3", "A1:C3", 3, 3},
		{"C3:A1", "A1:C3", 3, 3},
		{"A3:C1", "A1:C3", 3, 3},
		{"B5", "B5", 1, 1},
		{"Sheet1!A1:B2", "A1:B2", 2, 2},
		{"'My Sheet'!d4:d10", "D4:D10", 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			rng, err := grid.ParseRange(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rng.String())
			assert.Equal(t, tt.rows, rng.Rows())
			assert.Equal(t, tt.cols, rng.Cols())
			assert.Equal(t, tt.rows*tt.cols, rng.Cells())
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, ref := range []string{"", "A1:", ":B2", "A1:B", "Sheet1!"} {
		_, err := grid.ParseRange(ref)
		assert.Error(t, err, ref)
	}
}

func TestStartCell(t *testing.T) {
	cell, err := grid.StartCell("D7:B2")
	require.NoError(t, err)
	assert.Equal(t, "B2", cell.String())

	assert.Equal(t, grid.Cell{Col: 4, Row: 9}, cell.Offset(2, 7))
}
