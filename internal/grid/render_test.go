package grid_test

import (
	"strings"
	"testing"

	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleTable() grid.Table {
	return grid.Table{
		Headers: []string{"Name", "Age"},
		Rows: [][]string{
			{"Alice", "30"},
			{"Bob", "25"},
		},
	}
}

func TestRender_Plain(t *testing.T) {
	out, err := grid.Render(peopleTable(), grid.FormatPlain)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Name      Age",
		"Alice      30",
		"Bob        25",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRender_DefaultsToPlain(t *testing.T) {
	plain, err := grid.Render(peopleTable(), grid.FormatPlain)
	require.NoError(t, err)
	def, err := grid.Render(peopleTable(), "")
	require.NoError(t, err)
	assert.Equal(t, plain, def)
}

func TestRender_Pipe(t *testing.T) {
	out, err := grid.Render(peopleTable(), grid.FormatPipe)
	require.NoError(t, err)

	want := strings.Join([]string{
		"| Name   |   Age |",
		"|:-------|------:|",
		"| Alice  |    30 |",
		"| Bob    |    25 |",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRender_Grid(t *testing.T) {
	out, err := grid.Render(peopleTable(), grid.FormatGrid)
	require.NoError(t, err)

	want := strings.Join([]string{
		"+--------+-------+",
		"| Name   |   Age |",
		"+========+=======+",
		"| Alice  |    30 |",
		"+--------+-------+",
		"| Bob    |    25 |",
		"+--------+-------+",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRender_Simple(t *testing.T) {
	out, err := grid.Render(peopleTable(), grid.FormatSimple)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "------  -----", lines[1])
}

func TestRender_SimpleWithoutHeaders(t *testing.T) {
	table := grid.Table{Rows: [][]string{{"a", "b"}}}
	out, err := grid.Render(table, grid.FormatSimple)
	require.NoError(t, err)
	assert.Equal(t, "-  -\na  b\n-  -", out)
}

func TestRender_PSQL(t *testing.T) {
	out, err := grid.Render(peopleTable(), grid.FormatPSQL)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "+--------+-------+", lines[0])
	assert.Equal(t, "|--------+-------|", lines[2])
	assert.Equal(t, lines[0], lines[5])
}

func TestRender_TSV(t *testing.T) {
	out, err := grid.Render(peopleTable(), grid.FormatTSV)
	require.NoError(t, err)
	assert.Equal(t, "Name\tAge\nAlice\t30\nBob\t25", out)
}

func TestRender_HTMLEscapes(t *testing.T) {
	table := grid.Table{
		Headers: []string{"Expr"},
		Rows:    [][]string{{"<b>&</b>"}},
	}
	out, err := grid.Render(table, grid.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;b&gt;&amp;&lt;/b&gt;")
	assert.Contains(t, out, "<th style=\"text-align: left;\">Expr</th>")
	assert.True(t, strings.HasPrefix(out, "<table>"))
}

func TestRender_WideCharacters(t *testing.T) {
	table := grid.Table{
		Headers: []string{"City"},
		Rows:    [][]string{{"東京"}, {"Paris"}},
	}
	out, err := grid.Render(table, grid.FormatGithub)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	// every line has the same display width
	assert.Equal(t, "| 東京   |", lines[2])
	assert.Equal(t, "| Paris  |", lines[3])
}

func TestRender_RaggedRowsArePadded(t *testing.T) {
	table := grid.Table{Rows: [][]string{{"a", "b", "c"}, {"d"}}}
	out, err := grid.Render(table, grid.FormatPlain)
	require.NoError(t, err)
	assert.Equal(t, "a  b  c\nd", out)
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := grid.Render(peopleTable(), "fancy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported table format 'fancy'")
	assert.Contains(t, err.Error(), "github")
}

func TestFormats(t *testing.T) {
	names := grid.Formats()
	assert.Len(t, names, 9)
	assert.True(t, grid.IsFormat("rst"))
	assert.False(t, grid.IsFormat("latex"))
}

func TestRender_RowTableEndToEnd(t *testing.T) {
	m := grid.Matrix{
		{"Name", "Age", "City"},
		{"Alice", "30", "NYC"},
	}
	table := grid.BuildTable(m, grid.Cell{Col: 1, Row: 1}, grid.DefaultTableOptions())
	out, err := grid.Render(table, grid.FormatPlain)
	require.NoError(t, err)

	assert.Regexp(t, `Alice.*30.*NYC`, out)
	assert.NotContains(t, out, "Name")
	// the row number column is numeric so its header is right aligned
	assert.True(t, strings.HasPrefix(out, "  Row  A"))
}
