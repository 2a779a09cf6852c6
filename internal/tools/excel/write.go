package excel

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/telemetry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sammcj/mcp-excel/internal/workbook"
	"github.com/sirupsen/logrus"
)

// WriteCellTool writes one cell
type WriteCellTool struct{}

// WriteRangeTool writes a block of values
type WriteRangeTool struct{}

func init() {
	registry.Register(&WriteCellTool{})
	registry.Register(&WriteRangeTool{})
}

func writes() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true), // Overwrites existing cell contents
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	}
}

// Definition returns the tool's definition for MCP registration
func (t *WriteCellTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Write a value to a single cell in the active Excel workbook. Text starting with '=' is entered as a formula, numeric text as a number, TRUE/FALSE as a boolean. Prefix with ' to force text."),
		sheetNameParam(),
		mcp.WithString("cell_address",
			mcp.Required(),
			mcp.Description("Cell address like 'A1', 'B5', etc."),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Value to write to the cell, e.g. 'Hello', '42' or '=SUM(A1:A5)'. An empty string clears the cell."),
		),
	}, writes()...)
	return mcp.NewTool("write_cell", opts...)
}

// Execute writes the value and confirms the target address
func (t *WriteCellTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	cell, err := parseCellArg(args, "cell_address")
	if err != nil {
		return nil, err
	}
	raw, ok := args["value"]
	if !ok || raw == nil {
		return nil, &workbook.ValidationError{Field: "value", Value: raw, Message: "value parameter is required"}
	}
	value := grid.Display(raw)

	sheet, err := activeSheet(cache, logger, args)
	if err != nil {
		return nil, err
	}
	if err := sheet.Write(cell, value); err != nil {
		return nil, err
	}

	telemetry.RecordCells(ctx, "write", sheet.Name(), cell.String(), 1)
	logger.WithFields(logrus.Fields{"sheet": sheet.Name(), "cell": cell.String()}).Debug("Wrote cell")
	return mcp.NewToolResultText(fmt.Sprintf("Written '%s' to %s!%s", value, sheet.Name(), cell.String())), nil
}

// Definition returns the tool's definition for MCP registration
func (t *WriteRangeTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Write a 2D list of values to the active Excel workbook with its top-left corner at start_cell. Each value is interpreted the same way as write_cell. A flat list is written as a single row."),
		sheetNameParam(),
		mcp.WithString("start_cell",
			mcp.Required(),
			mcp.Description("Starting cell address like 'A1', 'B5', etc."),
		),
		mcp.WithArray("values",
			mcp.Required(),
			mcp.Description("2D list of values to write, one inner list per row. Example: [['Name','Age'],['Alice',30],['Total','=SUM(B2:B2)']]"),
			mcp.Items(map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": []string{"string", "number", "boolean", "null"},
				},
			}),
		),
	}, writes()...)
	return mcp.NewTool("write_range", opts...)
}

// Execute writes the block and reports its dimensions
func (t *WriteRangeTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	start, err := startCellArg(args, "start_cell")
	if err != nil {
		return nil, err
	}
	raw, ok := args["values"]
	if !ok {
		return nil, &workbook.ValidationError{Field: "values", Value: raw, Message: "values parameter is required"}
	}

	var m grid.Matrix
	if list, isList := raw.([]any); !isList || len(list) > 0 {
		m = grid.Normalise(raw)
	}

	sheet, err := activeSheet(cache, logger, args)
	if err != nil {
		return nil, err
	}
	if err := sheet.WriteMatrix(start, m); err != nil {
		return nil, err
	}

	telemetry.RecordCells(ctx, "write", sheet.Name(), start.String(), m.Rows()*m.Cols())
	logger.WithFields(logrus.Fields{
		"sheet": sheet.Name(),
		"start": start.String(),
		"rows":  m.Rows(),
		"cols":  m.Cols(),
	}).Debug("Wrote range")
	return mcp.NewToolResultText(fmt.Sprintf("Written %dx%d range starting at %s!%s", m.Rows(), m.Cols(), sheet.Name(), start.String())), nil
}

// ProvideExtendedInfo provides detailed usage information for write_range
func (t *WriteRangeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Write a 2x2 grid of numbers",
				Arguments: map[string]any{
					"sheet_name": "Sheet1",
					"start_cell": "A1",
					"values":     [][]any{{1, 2}, {3, 4}},
				},
				ExpectedResult: "Written 2x2 range starting at Sheet1!A1",
			},
			{
				Description: "Write data with a formula row",
				Arguments: map[string]any{
					"sheet_name": "Sales",
					"start_cell": "A1",
					"values": [][]any{
						{"Month", "Sales"},
						{"Jan", 5000},
						{"Feb", 6500},
						{"Total", "=SUM(B2:B3)"},
					},
				},
				ExpectedResult: "Written 4x2 range starting at Sales!A1",
			},
		},
		CommonPatterns: []string{
			"Values starting with '=' become formulas, numeric text becomes numbers, TRUE/FALSE become booleans",
			"Prefix a value with ' (apostrophe) to keep it as text, e.g. \"'007\" keeps the leading zeros",
			"Ragged rows are padded with empty cells, which clear whatever was there",
			"Changes stay in memory until save_active_workbook is called, unless the server runs with EXCEL_AUTOSAVE=true",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Numbers are stored as text",
				Solution: "Send numbers as JSON numbers or plain numeric text without thousands separators or currency symbols.",
			},
			{
				Problem:  "range covers N cells, the limit is M",
				Solution: "Split the write into smaller blocks. The limit is set with EXCEL_MAX_CELLS.",
			},
		},
	}
}
