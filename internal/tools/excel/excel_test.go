package excel_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/config"
	"github.com/sammcj/mcp-excel/internal/downloads"
	"github.com/sammcj/mcp-excel/internal/testutils"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sammcj/mcp-excel/internal/tools/excel"
	"github.com/sammcj/mcp-excel/internal/workbook"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	t      *testing.T
	cache  *sync.Map
	logger *logrus.Logger
	dir    string
	cfg    *config.Config
	state  *config.StateFile
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DownloadsDir = filepath.Join(dir, "Downloads")
	state := config.LoadState(filepath.Join(dir, "state.json"))

	cache := testutils.CreateTestCache()
	cache.Store(excel.ConfigCacheKey, cfg)
	cache.Store(excel.StateFileCacheKey, state)
	t.Cleanup(func() {
		if err := excel.Shutdown(cache); err != nil {
			t.Logf("Warning: shutdown failed: %v", err)
		}
	})

	return &env{t: t, cache: cache, logger: testutils.CreateTestLogger(), dir: dir, cfg: cfg, state: state}
}

// people writes the sample workbook used across the tool tests
func (e *env) people() string {
	return testutils.WriteWorkbook(e.t, e.dir, "people.xlsx", map[string]testutils.Sheet{
		"Sheet1": {
			"A1": "Name", "B1": "Age", "C1": "City",
			"A2": "Alice", "B2": 30, "C2": "NYC",
			"A3": "Bob", "B3": 25, "C3": "LA",
			"A4": "Charlie", "B4": 35, "C4": "Chicago",
		},
		"Summary": {
			"A1": "=SUM(Sheet1!B2:B4)",
		},
	})
}

type executor = tools.Tool

func (e *env) exec(tool executor, args map[string]any) (*mcp.CallToolResult, error) {
	e.t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	return tool.Execute(testutils.CreateTestContext(), e.logger, e.cache, args)
}

// text runs a tool that must succeed and returns its text
func (e *env) text(tool executor, args map[string]any) string {
	e.t.Helper()
	result, err := e.exec(tool, args)
	require.NoError(e.t, err)
	require.False(e.t, result.IsError, testutils.ResultText(e.t, result))
	return testutils.ResultText(e.t, result)
}

// errorText runs a tool that must return an error result and returns its text
func (e *env) errorText(tool executor, args map[string]any) string {
	e.t.Helper()
	result, err := e.exec(tool, args)
	require.NoError(e.t, err)
	require.True(e.t, result.IsError, "expected an error result")
	return testutils.ResultText(e.t, result)
}

func (e *env) open(path string) {
	e.t.Helper()
	e.text(&excel.OpenExcelFileTool{}, map[string]any{"file_path": path})
}

func (e *env) matrix(tool executor, args map[string]any) [][]string {
	e.t.Helper()
	var m [][]string
	require.NoError(e.t, json.Unmarshal([]byte(e.text(tool, args)), &m))
	return m
}

func TestDefinitions(t *testing.T) {
	cases := map[string]executor{
		"open_excel_file":               &excel.OpenExcelFileTool{},
		"close_active_workbook":         &excel.CloseActiveWorkbookTool{},
		"list_open_workbooks":           &excel.ListOpenWorkbooksTool{},
		"save_active_workbook":          &excel.SaveActiveWorkbookTool{},
		"activate_workbook":             &excel.ActivateWorkbookTool{},
		"list_recent_workbooks":         &excel.ListRecentWorkbooksTool{},
		"get_sheet_names":               &excel.GetSheetNamesTool{},
		"read_cell":                     &excel.ReadCellTool{},
		"read_range":                    &excel.ReadRangeTool{},
		"read_expanded_range":           &excel.ReadExpandedRangeTool{},
		"read_range_table":              &excel.ReadRangeTableTool{},
		"read_expanded_range_table":     &excel.ReadExpandedRangeTableTool{},
		"write_cell":                    &excel.WriteCellTool{},
		"write_range":                   &excel.WriteRangeTool{},
		"find_excel_files_in_downloads": &excel.FindExcelFilesInDownloadsTool{},
		"open_recent_excel_file":        &excel.OpenRecentExcelFileTool{},
	}
	for name, tool := range cases {
		t.Run(name, func(t *testing.T) {
			def := tool.Definition()
			assert.Equal(t, name, def.Name)
			assert.NotEmpty(t, def.Description)
		})
	}
}

func TestReadTools_RequireActiveWorkbook(t *testing.T) {
	e := newEnv(t)

	_, err := e.exec(&excel.GetSheetNamesTool{}, nil)
	assert.ErrorIs(t, err, workbook.ErrNoActiveWorkbook)

	_, err = e.exec(&excel.ReadCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "A1"})
	assert.ErrorIs(t, err, workbook.ErrNoActiveWorkbook)

	assert.Contains(t, e.errorText(&excel.SaveActiveWorkbookTool{}, nil), "Error saving workbook")
	assert.Contains(t, e.errorText(&excel.CloseActiveWorkbookTool{}, nil), "Error closing workbook")
	assert.Equal(t, "[]", e.text(&excel.ListOpenWorkbooksTool{}, nil))
}

func TestOpenExcelFile_Existing(t *testing.T) {
	e := newEnv(t)
	path := e.people()

	out := e.text(&excel.OpenExcelFileTool{}, map[string]any{"file_path": path})
	assert.Equal(t, "Opened workbook: people.xlsx with sheets: ['Sheet1', 'Summary']", out)
	assert.Equal(t, `["people.xlsx"]`, e.text(&excel.ListOpenWorkbooksTool{}, nil))
	assert.Equal(t, `["Sheet1","Summary"]`, e.text(&excel.GetSheetNamesTool{}, nil))
}

func TestOpenExcelFile_CreatesMissing(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "reports", "new.xlsx")

	out := e.text(&excel.OpenExcelFileTool{}, map[string]any{"file_path": path})
	assert.Equal(t, "Created and opened new workbook: new.xlsx with sheets: ['Sheet1']", out)
	assert.FileExists(t, path)
}

func TestOpenExcelFile_NoCreate(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "missing.xlsx")

	out := e.errorText(&excel.OpenExcelFileTool{}, map[string]any{
		"file_path":            path,
		"create_if_not_exists": false,
	})
	assert.Equal(t, "Error: File "+path+" does not exist and create_if_not_exists is false", out)
	assert.NoFileExists(t, path)
}

func TestOpenExcelFile_RelativeToFilesPath(t *testing.T) {
	e := newEnv(t)
	e.people()
	e.cfg.FilesPath = e.dir

	out := e.text(&excel.OpenExcelFileTool{}, map[string]any{"file_path": "people.xlsx"})
	assert.True(t, strings.HasPrefix(out, "Opened workbook: people.xlsx"))

	out = e.errorText(&excel.OpenExcelFileTool{}, map[string]any{"file_path": "../escape.xlsx"})
	assert.Contains(t, out, "directory traversal not allowed")
}

func TestOpenExcelFile_UnsupportedExtension(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	out := e.errorText(&excel.OpenExcelFileTool{}, map[string]any{"file_path": path})
	assert.True(t, strings.HasPrefix(out, "Error opening file:"))
	assert.Contains(t, out, "unsupported workbook extension '.txt'")

	out = e.errorText(&excel.OpenExcelFileTool{}, map[string]any{"file_path": filepath.Join(e.dir, "legacy.xls")})
	assert.Contains(t, out, "unsupported workbook extension '.xls'")
	assert.NoFileExists(t, filepath.Join(e.dir, "legacy.xls"))
}

func TestOpenExcelFile_DeniedPath(t *testing.T) {
	e := newEnv(t)
	e.cfg.DeniedPaths = []string{filepath.Join(e.dir, "vault") + "/**"}
	path := filepath.Join(e.dir, "vault", "salaries.xlsx")

	out := e.errorText(&excel.OpenExcelFileTool{}, map[string]any{"file_path": path})
	assert.True(t, strings.HasPrefix(out, "Error opening file: access denied"))
	assert.NoDirExists(t, filepath.Join(e.dir, "vault"))

	out = e.text(&excel.OpenExcelFileTool{}, map[string]any{"file_path": filepath.Join(e.dir, "open", "ok.xlsx")})
	assert.True(t, strings.HasPrefix(out, "Created and opened new workbook: ok.xlsx"))
}

func TestReadCell(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	read := &excel.ReadCellTool{}
	assert.Equal(t, "Alice", e.text(read, map[string]any{"sheet_name": "Sheet1", "cell_address": "A2"}))
	assert.Equal(t, "30", e.text(read, map[string]any{"sheet_name": "sheet1", "cell_address": "b2"}))
	assert.Equal(t, "90", e.text(read, map[string]any{"sheet_name": "Summary", "cell_address": "A1"}))
	assert.Equal(t, "=SUM(Sheet1!B2:B4)", e.text(read, map[string]any{
		"sheet_name":   "Summary",
		"cell_address": "A1",
		"get_formula":  true,
	}))
	// Far away but valid addresses read as empty
	assert.Equal(t, "", e.text(read, map[string]any{"sheet_name": "Sheet1", "cell_address": "ZZ999999"}))
}

func TestReadCell_InvalidInput(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())
	read := &excel.ReadCellTool{}

	_, err := e.exec(read, map[string]any{"sheet_name": "Sheet1", "cell_address": "1A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address '1A'")

	_, err = e.exec(read, map[string]any{"sheet_name": "Sheet1", "cell_address": "A1:B2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a single cell")

	_, err = e.exec(read, map[string]any{"sheet_name": "Data", "cell_address": "A1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Data'")

	_, err = e.exec(read, map[string]any{"cell_address": "A1"})
	var validation *workbook.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "sheet_name", validation.Field)
}

func TestReadRange(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	m := e.matrix(&excel.ReadRangeTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "A1:C2"})
	assert.Equal(t, [][]string{{"Name", "Age", "City"}, {"Alice", "30", "NYC"}}, m)

	m = e.matrix(&excel.ReadRangeTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "B3"})
	assert.Equal(t, [][]string{{"25"}}, m)

	m = e.matrix(&excel.ReadRangeTool{}, map[string]any{
		"sheet_name":    "Summary",
		"range_address": "A1:B1",
		"get_formulas":  true,
	})
	assert.Equal(t, [][]string{{"=SUM(Sheet1!B2:B4)", ""}}, m)
}

func TestReadExpandedRange(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	m := e.matrix(&excel.ReadExpandedRangeTool{}, map[string]any{"sheet_name": "Sheet1", "start_cell": "A1"})
	require.Len(t, m, 4)
	assert.Equal(t, []string{"Charlie", "35", "Chicago"}, m[3])

	m = e.matrix(&excel.ReadExpandedRangeTool{}, map[string]any{"sheet_name": "Sheet1", "start_cell": "B3"})
	assert.Equal(t, [][]string{{"25", "LA"}, {"35", "Chicago"}}, m)
}

func TestReadRangeTable(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	out := e.text(&excel.ReadRangeTableTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "A1:C3"})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^\s*Row\s+A\s+B\s+C$`, lines[0])
	assert.Regexp(t, `^\s*2\s+Alice\s+30\s+NYC$`, lines[1])
	assert.Regexp(t, `^\s*3\s+Bob\s+25\s+LA$`, lines[2])

	out = e.text(&excel.ReadRangeTableTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "A1:C3", "headers": false})
	lines = strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Regexp(t, `^\s*1\s+Name\s+Age\s+City$`, lines[1])
}

func TestReadRangeTable_HeadersOnly(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	out := e.text(&excel.ReadRangeTableTool{}, map[string]any{
		"sheet_name":         "Sheet1",
		"range_address":      "A1:C3",
		"show_row_numbers":   false,
		"show_col_addresses": false,
		"tablefmt":           "GitHub",
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Regexp(t, `^\| Name\s+\|\s+Age \| City\s+\|$`, lines[0])
	assert.Regexp(t, `^\| Alice`, lines[2])
}

func TestReadRangeTable_SingleCellAndBadFormat(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	out := e.text(&excel.ReadRangeTableTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "C4"})
	assert.Equal(t, "Chicago", out)

	_, err := e.exec(&excel.ReadRangeTableTool{}, map[string]any{
		"sheet_name":    "Sheet1",
		"range_address": "A1:B2",
		"tablefmt":      "fancy",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported table format 'fancy'")
}

func TestReadRangeTable_UsesConfiguredFormat(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())
	e.cfg.DefaultTableFormat = "tsv"

	out := e.text(&excel.ReadRangeTableTool{}, map[string]any{
		"sheet_name":         "Sheet1",
		"range_address":      "A1:B2",
		"show_row_numbers":   false,
		"show_col_addresses": false,
	})
	assert.Equal(t, "Name\tAge\nAlice\t30", out)
}

func TestReadExpandedRangeTable(t *testing.T) {
	e := newEnv(t)
	e.open(e.people())

	out := e.text(&excel.ReadExpandedRangeTableTool{}, map[string]any{"sheet_name": "Sheet1", "start_cell": "B2", "headers": false})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Regexp(t, `^\s*Row\s+B\s+C$`, lines[0])
	assert.Regexp(t, `^\s*4\s+35\s+Chicago$`, lines[3])
}

func TestWriteCell(t *testing.T) {
	e := newEnv(t)
	e.open(filepath.Join(e.dir, "simple.xlsx"))

	out := e.text(&excel.WriteCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "B2", "value": "Hello World"})
	assert.Equal(t, "Written 'Hello World' to Sheet1!B2", out)
	assert.Equal(t, "Hello World", e.text(&excel.ReadCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "B2"}))

	// Numbers sent as JSON numbers are written as numbers
	out = e.text(&excel.WriteCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "a1", "value": 42.0})
	assert.Equal(t, "Written '42' to Sheet1!A1", out)

	_, err := e.exec(&excel.WriteCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "A1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value parameter is required")
}

func TestWriteCell_Formula(t *testing.T) {
	e := newEnv(t)
	e.open(filepath.Join(e.dir, "with_numbers.xlsx"))

	_ = e.text(&excel.WriteRangeTool{}, map[string]any{
		"sheet_name": "Sheet1",
		"start_cell": "A1",
		"values":     []any{[]any{10.0}, []any{20.0}, []any{30.0}, []any{40.0}, []any{50.0}},
	})
	_ = e.text(&excel.WriteCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "C1", "value": "=SUM(A1:A5)"})

	read := &excel.ReadCellTool{}
	assert.Equal(t, "150", e.text(read, map[string]any{"sheet_name": "Sheet1", "cell_address": "C1"}))
	assert.Equal(t, "=SUM(A1:A5)", e.text(read, map[string]any{"sheet_name": "Sheet1", "cell_address": "C1", "get_formula": true}))
}

func TestWriteRange(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "empty.xlsx")
	e.open(path)

	out := e.text(&excel.WriteRangeTool{}, map[string]any{
		"sheet_name": "Sheet1",
		"start_cell": "A1",
		"values":     []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
	})
	assert.Equal(t, "Written 2x2 range starting at Sheet1!A1", out)

	m := e.matrix(&excel.ReadRangeTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "A1:B2"})
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, m)

	assert.Equal(t, "Saved workbook: empty.xlsx", e.text(&excel.SaveActiveWorkbookTool{}, nil))
	assert.Equal(t, "Closed workbook: empty.xlsx", e.text(&excel.CloseActiveWorkbookTool{}, nil))

	// The saved file holds the values after reopening
	e.open(path)
	m = e.matrix(&excel.ReadRangeTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "A1:B2"})
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, m)
}

func TestWriteRange_Shapes(t *testing.T) {
	e := newEnv(t)
	e.open(filepath.Join(e.dir, "shapes.xlsx"))
	write := &excel.WriteRangeTool{}

	out := e.text(write, map[string]any{"sheet_name": "Sheet1", "start_cell": "B5", "values": []any{"a", "b", "c"}})
	assert.Equal(t, "Written 1x3 range starting at Sheet1!B5", out)

	out = e.text(write, map[string]any{"sheet_name": "Sheet1", "start_cell": "A1", "values": []any{}})
	assert.Equal(t, "Written 0x0 range starting at Sheet1!A1", out)

	out = e.text(write, map[string]any{
		"sheet_name": "Sheet1",
		"start_cell": "D1:F9",
		"values":     []any{[]any{"x"}, []any{"y", "z"}},
	})
	assert.Equal(t, "Written 2x2 range starting at Sheet1!D1", out)

	m := e.matrix(&excel.ReadRangeTool{}, map[string]any{"sheet_name": "Sheet1", "range_address": "D1:E2"})
	assert.Equal(t, [][]string{{"x", ""}, {"y", "z"}}, m)
}

func TestWriteRange_MaxCells(t *testing.T) {
	e := newEnv(t)
	e.cfg.MaxCells = 3
	e.open(filepath.Join(e.dir, "limited.xlsx"))

	_, err := e.exec(&excel.WriteRangeTool{}, map[string]any{
		"sheet_name": "Sheet1",
		"start_cell": "A1",
		"values":     []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "the limit is 3")
}

func TestWorkbookSwitching(t *testing.T) {
	e := newEnv(t)
	people := e.people()
	e.open(people)
	e.open(filepath.Join(e.dir, "other.xlsx"))

	assert.Equal(t, `["people.xlsx","other.xlsx"]`, e.text(&excel.ListOpenWorkbooksTool{}, nil))
	assert.Equal(t, `["Sheet1"]`, e.text(&excel.GetSheetNamesTool{}, nil))

	out := e.text(&excel.ActivateWorkbookTool{}, map[string]any{"name": "PEOPLE.xlsx"})
	assert.Equal(t, "Activated workbook: people.xlsx with sheets: ['Sheet1', 'Summary']", out)

	out = e.errorText(&excel.ActivateWorkbookTool{}, map[string]any{"name": "peeple.xlsx"})
	assert.Contains(t, out, "Error activating workbook")
	assert.Contains(t, out, "people.xlsx")

	assert.Equal(t, "Closed workbook: people.xlsx", e.text(&excel.CloseActiveWorkbookTool{}, nil))
	assert.Equal(t, `["Sheet1"]`, e.text(&excel.GetSheetNamesTool{}, nil))
}

func TestListRecentWorkbooks(t *testing.T) {
	e := newEnv(t)
	people := e.people()
	e.open(people)
	other := filepath.Join(e.dir, "other.xlsx")
	e.open(other)
	e.text(&excel.CloseActiveWorkbookTool{}, nil)
	require.NoError(t, os.Remove(other))

	type entry struct {
		Path     string `json:"path"`
		OpenedAt string `json:"opened_at"`
		Exists   bool   `json:"exists"`
	}
	var entries []entry
	require.NoError(t, json.Unmarshal([]byte(e.text(&excel.ListRecentWorkbooksTool{}, nil)), &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, other, entries[0].Path)
	assert.False(t, entries[0].Exists)
	assert.Equal(t, people, entries[1].Path)
	assert.True(t, entries[1].Exists)
	_, err := time.Parse(time.RFC3339, entries[1].OpenedAt)
	assert.NoError(t, err)
}

func TestAutoSave(t *testing.T) {
	e := newEnv(t)
	e.cfg.AutoSave = true
	path := filepath.Join(e.dir, "auto.xlsx")
	e.open(path)
	e.text(&excel.WriteCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "A1", "value": "kept"})
	e.text(&excel.CloseActiveWorkbookTool{}, nil)

	e.open(path)
	assert.Equal(t, "kept", e.text(&excel.ReadCellTool{}, map[string]any{"sheet_name": "Sheet1", "cell_address": "A1"}))
}

func (e *env) downloads() string {
	e.t.Helper()
	dir := e.cfg.DownloadsDir
	require.NoError(e.t, os.MkdirAll(filepath.Join(dir, "nested"), 0700))
	e.cache.Store(excel.FinderCacheKey, downloads.NewFinder(dir, e.cfg.RecentLimit, time.Minute, e.logger))
	return dir
}

func TestFindExcelFilesInDownloads_Empty(t *testing.T) {
	e := newEnv(t)
	e.downloads()

	assert.Equal(t, `["No Excel files found in Downloads folder"]`, e.text(&excel.FindExcelFilesInDownloadsTool{}, nil))
	assert.Equal(t, "No Excel files found in Downloads folder", e.text(&excel.OpenRecentExcelFileTool{}, nil))
}

func TestFindAndOpenRecent(t *testing.T) {
	e := newEnv(t)
	dir := e.downloads()

	old := testutils.WriteWorkbook(t, dir, "old.xlsx", map[string]testutils.Sheet{"Sheet1": {"A1": "old"}})
	newest := testutils.WriteWorkbook(t, filepath.Join(dir, "nested"), "new.xlsx", map[string]testutils.Sheet{
		"Data": {"A1": "new"},
	})
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	var paths []string
	require.NoError(t, json.Unmarshal([]byte(e.text(&excel.FindExcelFilesInDownloadsTool{}, nil)), &paths))
	assert.Equal(t, []string{newest, old}, paths)

	out := e.text(&excel.OpenRecentExcelFileTool{}, nil)
	assert.Equal(t, "Opened most recent file: new.xlsx with sheets: ['Data']", out)
	assert.Equal(t, "new", e.text(&excel.ReadCellTool{}, map[string]any{"sheet_name": "Data", "cell_address": "A1"}))
}

func TestExtendedHelp(t *testing.T) {
	providers := []tools.ExtendedHelpProvider{
		&excel.OpenExcelFileTool{},
		&excel.ReadExpandedRangeTool{},
		&excel.ReadRangeTableTool{},
		&excel.WriteRangeTool{},
		&excel.FindExcelFilesInDownloadsTool{},
	}
	for _, p := range providers {
		help := p.ProvideExtendedInfo()
		require.NotNil(t, help)
		assert.NotEmpty(t, help.CommonPatterns)
		for _, ex := range help.Examples {
			assert.NotEmpty(t, ex.Description)
			assert.NotEmpty(t, ex.Arguments)
		}
	}
}
