package excel

import (
	"context"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/telemetry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sirupsen/logrus"
)

// ReadRangeTableTool reads a range and renders it as a text table
type ReadRangeTableTool struct{}

// ReadExpandedRangeTableTool reads an expanded data region and renders it as a text table
type ReadExpandedRangeTableTool struct{}

func init() {
	registry.Register(&ReadRangeTableTool{})
	registry.Register(&ReadExpandedRangeTableTool{})
}

// tableParams are the layout options shared by both table tools
func tableParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithBoolean("headers",
			mcp.Description("Whether the first row contains headers"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("show_row_numbers",
			mcp.Description("Add sheet row numbers as the first column"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("show_col_addresses",
			mcp.Description("Use column letters (A, B, C) as headers"),
			mcp.DefaultBool(true),
		),
		mcp.WithString("tablefmt",
			mcp.Description("Table format"),
			mcp.Enum(grid.Formats()...),
		),
	}
}

// Definition returns the tool's definition for MCP registration
func (t *ReadRangeTableTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Read a range of cells from the active Excel workbook and format it as a text table with optional row numbers and column letters. A single cell returns just its value."),
		sheetNameParam(),
		mcp.WithString("range_address",
			mcp.Required(),
			mcp.Description("Range address like 'A1:C10', 'B2:D20', etc."),
		),
	}
	opts = append(opts, tableParams()...)
	opts = append(opts, readOnly()...)
	return mcp.NewTool("read_range_table", opts...)
}

// Execute renders the range as a table
func (t *ReadRangeTableTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	rng, err := parseRangeArg(args, "range_address")
	if err != nil {
		return nil, err
	}
	return renderTable(ctx, cache, logger, args, rng)
}

// Definition returns the tool's definition for MCP registration
func (t *ReadExpandedRangeTableTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Read a dynamic range starting from a cell, expanding down and right to the edge of the data region, and format it as a text table."),
		sheetNameParam(),
		mcp.WithString("start_cell",
			mcp.Required(),
			mcp.Description("Starting cell address like 'A1', 'B5', etc."),
		),
	}
	opts = append(opts, tableParams()...)
	opts = append(opts, readOnly()...)
	return mcp.NewTool("read_expanded_range_table", opts...)
}

// Execute expands from the start cell and renders the region as a table
func (t *ReadExpandedRangeTableTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
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
	return renderTable(ctx, cache, logger, args, rng)
}

func renderTable(ctx context.Context, cache *sync.Map, logger *logrus.Logger, args map[string]any, rng grid.Range) (*mcp.CallToolResult, error) {
	format, _ := args["tablefmt"].(string)
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = configFrom(cache).DefaultTableFormat
	}

	sheet, err := activeSheet(cache, logger, args)
	if err != nil {
		return nil, err
	}
	m, err := sheet.Values(rng)
	if err != nil {
		return nil, err
	}

	telemetry.RecordCells(ctx, "read", sheet.Name(), rng.String(), rng.Cells())

	opts := grid.TableOptions{
		Headers:          optionalBool(args, "headers", true),
		ShowRowNumbers:   optionalBool(args, "show_row_numbers", true),
		ShowColAddresses: optionalBool(args, "show_col_addresses", true),
	}
	out, err := grid.Render(grid.BuildTable(m, rng.Start, opts), format)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"sheet":  sheet.Name(),
		"range":  rng.String(),
		"format": format,
	}).Debug("Rendered table")
	return mcp.NewToolResultText(out), nil
}

// ProvideExtendedInfo provides detailed usage information for read_range_table
func (t *ReadRangeTableTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Show a small table with row numbers and column letters",
				Arguments: map[string]any{
					"sheet_name":    "Sheet1",
					"range_address": "A1:C3",
				},
				ExpectedResult: "  Row  A      B    C\n    1  Name   Age  City\n    2  Alice   30  NYC\n    3  Bob     25  LA",
			},
			{
				Description: "Markdown table using the first row as headers",
				Arguments: map[string]any{
					"sheet_name":         "Sheet1",
					"range_address":      "A1:C3",
					"show_row_numbers":   false,
					"show_col_addresses": false,
					"tablefmt":           "github",
				},
				ExpectedResult: "| Name   |   Age | City   |\n|--------|-------|--------|\n| Alice  |    30 | NYC    |\n| Bob    |    25 | LA     |",
			},
		},
		CommonPatterns: []string{
			"Keep show_row_numbers and show_col_addresses on when you intend to write back, so every value can be traced to its cell address",
			"Turn show_col_addresses off and keep headers on to label columns with the sheet's own header row",
			"Use tablefmt=github or pipe for Markdown output, tsv for copy/paste into other tools",
		},
		ParameterDetails: map[string]string{
			"headers":            "With show_col_addresses off, the first row becomes the header line. With show_col_addresses on, column letters are the header and the first row is dropped as labels; set headers to false to keep it in the body.",
			"show_row_numbers":   "Row numbers are the real sheet rows, so a range starting at B5 is numbered from 5.",
			"show_col_addresses": "Column letters start at the range's first column and continue past Z as AA, AB, and so on.",
			"tablefmt":           "One of plain, simple, grid, pipe, github, psql, rst, tsv, html. Defaults to the server's configured format (plain).",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "unsupported table format error",
				Solution: "Use one of the listed tablefmt values. Format names are case-insensitive.",
			},
			{
				Problem:  "The result is a single value rather than a table",
				Solution: "A one-cell range is returned as its bare value. Widen the range to get a table.",
			},
		},
		WhenToUse: "Showing spreadsheet data to a person, or when cell addresses need to be visible next to values.",
	}
}
