package grid_test

import (
	"testing"
	"time"

	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalise(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  grid.Matrix
	}{
		{"nil", nil, grid.Matrix{{""}}},
		{"scalar string", "hello", grid.Matrix{{"hello"}}},
		{"scalar int", 42, grid.Matrix{{"42"}}},
		{"whole float", 3.0, grid.Matrix{{"3"}}},
		{"fraction", 1.5, grid.Matrix{{"1.5"}}},
		{"bool", true, grid.Matrix{{"TRUE"}}},
		{"flat list", []any{1, "a", false, nil}, grid.Matrix{{"1", "a", "FALSE", ""}}},
		{"empty list", []any{}, grid.Matrix{}},
		{"nested list", []any{[]any{1, 2}, []any{3, 4}}, grid.Matrix{{"1", "2"}, {"3", "4"}}},
		{"ragged", [][]any{{"a", "b", "c"}, {"d"}}, grid.Matrix{{"a", "b", "c"}, {"d", "", ""}}},
		{"mixed list is a row", []any{[]any{1}, 2}, grid.Matrix{{"[1]", "2"}}},
		{"string slice", []string{"x", "y"}, grid.Matrix{{"x", "y"}}},
		{"string matrix", [][]string{{"x"}, {"y", "z"}}, grid.Matrix{{"x", ""}, {"y", "z"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, grid.Normalise(tt.input))
		})
	}
}

func TestDisplay_Time(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-09", grid.Display(day))
	assert.Equal(t, "2024-03-09 14:30:00", grid.Display(day.Add(14*time.Hour+30*time.Minute)))
	assert.Equal(t, "2024-03-09 00:00:00", grid.Display(day.Add(500*time.Millisecond)))
}

func TestDisplay_Float(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{30, "30"},
		{-2.5, "-2.5"},
		{1234567.5, "1234567.5"},
		{1e15, "1000000000000000"},
		{9999999999999998, "9999999999999998"},
		{1e16, "1e+16"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{0.1 + 0.2, "0.30000000000000004"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, grid.Display(tt.in))
		})
	}
}

func TestMatrix_CloneIsIndependent(t *testing.T) {
	m := grid.Matrix{{"a", "b"}}
	clone := m.Clone()
	clone[0][0] = "z"
	assert.Equal(t, "a", m[0][0])
}

func sampleMatrix() grid.Matrix {
	return grid.Matrix{
		{"Name", "Age", "City"},
		{"Alice", "30", "NYC"},
		{"Bob", "25", "LA"},
	}
}

func TestBuildTable_Defaults(t *testing.T) {
	m := sampleMatrix()
	table := grid.BuildTable(m, grid.Cell{Col: 1, Row: 1}, grid.DefaultTableOptions())

	assert.False(t, table.Bare)
	assert.Equal(t, []string{"Row", "A", "B", "C"}, table.Headers)
	assert.Equal(t, [][]string{{"2", "Alice", "30", "NYC"}, {"3", "Bob", "25", "LA"}}, table.Rows)

	// Source matrix is untouched
	assert.Equal(t, sampleMatrix(), m)
}

func TestBuildTable_ColumnAddressesHeadersToggle(t *testing.T) {
	m := grid.Matrix{{"Name", "Age"}, {"Alice", "30"}}
	origin := grid.Cell{Col: 1, Row: 1}

	withHeaders := grid.BuildTable(m, origin, grid.TableOptions{Headers: true, ShowRowNumbers: true, ShowColAddresses: true})
	assert.Equal(t, []string{"Row", "A", "B"}, withHeaders.Headers)
	assert.Equal(t, [][]string{{"2", "Alice", "30"}}, withHeaders.Rows)

	withoutHeaders := grid.BuildTable(m, origin, grid.TableOptions{ShowRowNumbers: true, ShowColAddresses: true})
	assert.Equal(t, []string{"Row", "A", "B"}, withoutHeaders.Headers)
	assert.Equal(t, [][]string{{"1", "Name", "Age"}, {"2", "Alice", "30"}}, withoutHeaders.Rows)
}

func TestBuildTable_FirstRowHeaders(t *testing.T) {
	table := grid.BuildTable(sampleMatrix(), grid.Cell{Col: 1, Row: 1}, grid.TableOptions{Headers: true})

	assert.Equal(t, []string{"Name", "Age", "City"}, table.Headers)
	assert.Equal(t, [][]string{{"Alice", "30", "NYC"}, {"Bob", "25", "LA"}}, table.Rows)
}

func TestBuildTable_HeadersWithRowNumbers(t *testing.T) {
	table := grid.BuildTable(sampleMatrix(), grid.Cell{Col: 2, Row: 4}, grid.TableOptions{Headers: true, ShowRowNumbers: true})

	assert.Equal(t, []string{"Row", "Name", "Age", "City"}, table.Headers)
	assert.Equal(t, []string{"5", "Alice", "30", "NYC"}, table.Rows[0])
	assert.Equal(t, []string{"6", "Bob", "25", "LA"}, table.Rows[1])
}

func TestBuildTable_ColumnAddressesFromOffset(t *testing.T) {
	m := grid.Matrix{{"1", "2"}, {"3", "4"}}
	table := grid.BuildTable(m, grid.Cell{Col: 26, Row: 10}, grid.TableOptions{ShowColAddresses: true, ShowRowNumbers: true})

	assert.Equal(t, []string{"Row", "Z", "AA"}, table.Headers)
	assert.Equal(t, [][]string{{"10", "1", "2"}, {"11", "3", "4"}}, table.Rows)
}

func TestBuildTable_NoDecoration(t *testing.T) {
	table := grid.BuildTable(sampleMatrix(), grid.Cell{Col: 1, Row: 1}, grid.TableOptions{})

	assert.Empty(t, table.Headers)
	assert.Len(t, table.Rows, 3)
}

func TestBuildTable_SingleCellIsBare(t *testing.T) {
	table := grid.BuildTable(grid.Matrix{{"42"}}, grid.Cell{Col: 1, Row: 1}, grid.DefaultTableOptions())

	assert.True(t, table.Bare)
	assert.Equal(t, "42", table.Value)

	out, err := grid.Render(table, grid.FormatGrid)
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}
