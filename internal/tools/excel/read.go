package excel

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/telemetry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sirupsen/logrus"
)

// GetSheetNamesTool lists the sheets of the active workbook
type GetSheetNamesTool struct{}

// ReadCellTool reads one cell
type ReadCellTool struct{}

// ReadRangeTool reads a rectangular range as a matrix
type ReadRangeTool struct{}

// ReadExpandedRangeTool reads the data region that grows out of a start cell
type ReadExpandedRangeTool struct{}

func init() {
	registry.Register(&GetSheetNamesTool{})
	registry.Register(&ReadCellTool{})
	registry.Register(&ReadRangeTool{})
	registry.Register(&ReadExpandedRangeTool{})
}

// readOnly marks tools that only read workbook state
func readOnly() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	}
}

func sheetNameParam() mcp.ToolOption {
	return mcp.WithString("sheet_name",
		mcp.Required(),
		mcp.Description("Name of the sheet in the active workbook, e.g. 'Sheet1'"),
	)
}

// Definition returns the tool's definition for MCP registration
func (t *GetSheetNamesTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Get all sheet names from the active Excel workbook."),
	}, readOnly()...)
	return mcp.NewTool("get_sheet_names", opts...)
}

// Execute returns the sheet names as a JSON list
func (t *GetSheetNamesTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	book, err := appFrom(cache, logger).Active()
	if err != nil {
		return nil, err
	}
	return newToolResultJSON(book.SheetNames())
}

// Definition returns the tool's definition for MCP registration
func (t *ReadCellTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Read a single cell value or formula from the active Excel workbook. Formula cells return their calculated value unless get_formula is true."),
		sheetNameParam(),
		mcp.WithString("cell_address",
			mcp.Required(),
			mcp.Description("Cell address like 'A1', 'B5', etc."),
		),
		mcp.WithBoolean("get_formula",
			mcp.Description("If true, return the formula (e.g. '=SUM(A1:A3)'); if false, return the calculated value"),
			mcp.DefaultBool(false),
		),
	}, readOnly()...)
	return mcp.NewTool("read_cell", opts...)
}

// Execute reads the cell as text. Empty cells read as an empty string.
func (t *ReadCellTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	cell, err := parseCellArg(args, "cell_address")
	if err != nil {
		return nil, err
	}
	sheet, err := activeSheet(cache, logger, args)
	if err != nil {
		return nil, err
	}

	var value string
	if optionalBool(args, "get_formula", false) {
		value, err = sheet.Formula(cell)
	} else {
		value, err = sheet.Value(cell)
	}
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(value), nil
}

// Definition returns the tool's definition for MCP registration
func (t *ReadRangeTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Read a range of cells from the active Excel workbook as a 2D list of strings. A single cell returns [[value]], a single row returns [[v1, v2, ...]]."),
		sheetNameParam(),
		mcp.WithString("range_address",
			mcp.Required(),
			mcp.Description("Range address like 'A1:C3', 'B2:D10', etc."),
		),
		mcp.WithBoolean("get_formulas",
			mcp.Description("If true, return formulas where cells have them; if false, return calculated values"),
			mcp.DefaultBool(false),
		),
	}, readOnly()...)
	return mcp.NewTool("read_range", opts...)
}

// Execute reads the range as a JSON matrix
func (t *ReadRangeTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	rng, err := parseRangeArg(args, "range_address")
	if err != nil {
		return nil, err
	}
	return readMatrix(ctx, cache, logger, args, rng)
}

// Definition returns the tool's definition for MCP registration
func (t *ReadExpandedRangeTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Read a dynamic range starting from a cell, expanding down and right to the edge of the data region. Returns a 2D list of strings."),
		sheetNameParam(),
		mcp.WithString("start_cell",
			mcp.Required(),
			mcp.Description("Starting cell address like 'A1', 'B5', etc."),
		),
		mcp.WithBoolean("get_formulas",
			mcp.Description("If true, return formulas where cells have them; if false, return calculated values"),
			mcp.DefaultBool(false),
		),
	}, readOnly()...)
	return mcp.NewTool("read_expanded_range", opts...)
}

// Execute expands from the start cell and reads the region as a JSON matrix
func (t *ReadExpandedRangeTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	start, err := startCellArg(args, "start_cell")
	if err != nil {
		return nil, err
	}
	sheet, err := activeSheet(cache, logger, args)
	if err != nil {
		return nil, err
	}
	rng, err := sheet.Expand(start)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"start": start.String(), "range": rng.String()}).Debug("Expanded range")
	return readMatrix(ctx, cache, logger, args, rng)
}

func readMatrix(ctx context.Context, cache *sync.Map, logger *logrus.Logger, args map[string]any, rng grid.Range) (*mcp.CallToolResult, error) {
	sheet, err := activeSheet(cache, logger, args)
	if err != nil {
		return nil, err
	}

	var m grid.Matrix
	if optionalBool(args, "get_formulas", false) {
		m, err = sheet.Formulas(rng)
	} else {
		m, err = sheet.Values(rng)
	}
	if err != nil {
		return nil, err
	}
	telemetry.RecordCells(ctx, "read", sheet.Name(), rng.String(), rng.Cells())
	return newToolResultJSON(m)
}

// ProvideExtendedInfo provides detailed usage information for read_expanded_range
func (t *ReadExpandedRangeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Read a whole table whose header starts at A1",
				Arguments: map[string]any{
					"sheet_name": "Sheet1",
					"start_cell": "A1",
				},
				ExpectedResult: `[["Name","Age","City"],["Alice","30","NYC"],["Bob","25","LA"]]`,
			},
		},
		CommonPatterns: []string{
			"Use when the size of the data is unknown; the region ends at the first empty cell below the start cell and the first empty cell to its right",
			"Count rows of a table by reading the expanded range and subtracting the header row",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Only part of the table is returned",
				Solution: "Expansion stops at the first empty cell in the start column (downwards) and the start row (rightwards). Start from a header cell with no gaps, or use read_range with an explicit address.",
			},
		},
		WhenToUse:    "Reading a contiguous block of data without knowing its size in advance.",
		WhenNotToUse: "When the data has blank rows or columns inside it, use read_range with an explicit address instead.",
	}
}
