package excel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sirupsen/logrus"
)

// OpenExcelFileTool opens (or creates) a workbook and makes it active
type OpenExcelFileTool struct{}

// CloseActiveWorkbookTool closes the active workbook
type CloseActiveWorkbookTool struct{}

// ListOpenWorkbooksTool lists open workbooks
type ListOpenWorkbooksTool struct{}

// SaveActiveWorkbookTool saves the active workbook
type SaveActiveWorkbookTool struct{}

// ActivateWorkbookTool switches the active workbook
type ActivateWorkbookTool struct{}

// ListRecentWorkbooksTool lists workbooks opened in earlier sessions
type ListRecentWorkbooksTool struct{}

func init() {
	registry.Register(&OpenExcelFileTool{})
	registry.Register(&CloseActiveWorkbookTool{})
	registry.Register(&ListOpenWorkbooksTool{})
	registry.Register(&SaveActiveWorkbookTool{})
	registry.Register(&ActivateWorkbookTool{})
	registry.Register(&ListRecentWorkbooksTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *OpenExcelFileTool) Definition() mcp.Tool {
	return mcp.NewTool("open_excel_file",
		mcp.WithDescription("Open an Excel (.xlsx) file and make it the active workbook. Creates the file (and missing folders) when it does not exist, unless create_if_not_exists is false."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the Excel file to open. Relative paths resolve against EXCEL_FILES_PATH when set, otherwise the server's working directory."),
		),
		mcp.WithBoolean("create_if_not_exists",
			mcp.Description("If true, create the file if it doesn't exist"),
			mcp.DefaultBool(true),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute opens or creates the workbook. Failures are reported as error results.
func (t *OpenExcelFileTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	filePath, _ := args["file_path"].(string)
	path, err := resolvePath(configFrom(cache).FilesPath, filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
	}
	if err := checkAccess(cache, logger, path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
	}

	app := appFrom(cache, logger)

	_, statErr := os.Stat(path)
	switch {
	case errors.Is(statErr, fs.ErrNotExist) && optionalBool(args, "create_if_not_exists", true):
		book, err := app.Create(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created and opened new workbook: %s with sheets: %s", book.Name, formatSheetList(book.SheetNames()))), nil

	case errors.Is(statErr, fs.ErrNotExist):
		return mcp.NewToolResultError(fmt.Sprintf("Error: File %s does not exist and create_if_not_exists is false", filePath)), nil
	}

	book, err := app.Open(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Opened workbook: %s with sheets: %s", book.Name, formatSheetList(book.SheetNames()))), nil
}

// ProvideExtendedInfo provides detailed usage information for open_excel_file
func (t *OpenExcelFileTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Open a workbook next to the server",
				Arguments:      map[string]any{"file_path": "sample_data.xlsx"},
				ExpectedResult: "Opened workbook: sample_data.xlsx with sheets: ['Sheet1']",
			},
			{
				Description:    "Create a new workbook in a new folder",
				Arguments:      map[string]any{"file_path": "/tmp/reports/q3.xlsx"},
				ExpectedResult: "Created and opened new workbook: q3.xlsx with sheets: ['Sheet1']",
			},
		},
		CommonPatterns: []string{
			"Open first, then use get_sheet_names to see what the workbook holds",
			"Opening a workbook that is already open makes it active again without reloading it, so unsaved edits are kept",
			"Call save_active_workbook before close_active_workbook to keep changes",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "directory traversal not allowed",
				Solution: "When EXCEL_FILES_PATH is set, relative paths may not leave it. Use a path inside that folder or an absolute path.",
			},
			{
				Problem:  "access denied: matches denied path pattern",
				Solution: "The path is excluded by EXCEL_DENIED_PATHS (credential and system folders by default). Work on a copy elsewhere.",
			},
			{
				Problem:  "unsupported workbook extension",
				Solution: "Only .xlsx, .xlsm, .xltm and .xltx files can be opened or created. Legacy .xls files must be converted first.",
			},
		},
		WhenNotToUse: "To switch between workbooks that are already open, use activate_workbook.",
	}
}

// Definition returns the tool's definition for MCP registration
func (t *CloseActiveWorkbookTool) Definition() mcp.Tool {
	return mcp.NewTool("close_active_workbook",
		mcp.WithDescription("Close the currently active Excel workbook without saving. The previously opened workbook becomes active."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true), // Unsaved changes are discarded
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute closes the active workbook
func (t *CloseActiveWorkbookTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	name, err := appFrom(cache, logger).CloseActive()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error closing workbook: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed workbook: %s", name)), nil
}

// Definition returns the tool's definition for MCP registration
func (t *ListOpenWorkbooksTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List all currently open Excel workbooks in the order they were opened."),
	}, readOnly()...)
	return mcp.NewTool("list_open_workbooks", opts...)
}

// Execute returns the open workbook names as a JSON list
func (t *ListOpenWorkbooksTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	names := appFrom(cache, logger).Books()
	if names == nil {
		names = []string{}
	}
	return newToolResultJSON(names)
}

// Definition returns the tool's definition for MCP registration
func (t *SaveActiveWorkbookTool) Definition() mcp.Tool {
	return mcp.NewTool("save_active_workbook",
		mcp.WithDescription("Save the currently active Excel workbook back to its file."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute saves the active workbook
func (t *SaveActiveWorkbookTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	name, err := appFrom(cache, logger).SaveActive()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error saving workbook: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved workbook: %s", name)), nil
}

// Definition returns the tool's definition for MCP registration
func (t *ActivateWorkbookTool) Definition() mcp.Tool {
	return mcp.NewTool("activate_workbook",
		mcp.WithDescription("Make an already open workbook the active one, so sheet and cell tools act on it."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Workbook file name as shown by list_open_workbooks, e.g. 'report.xlsx'"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute activates the named workbook
func (t *ActivateWorkbookTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}
	book, err := appFrom(cache, logger).Activate(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error activating workbook: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Activated workbook: %s with sheets: %s", book.Name, formatSheetList(book.SheetNames()))), nil
}

// recentEntry is one line of the list_recent_workbooks result
type recentEntry struct {
	Path     string `json:"path"`
	OpenedAt string `json:"opened_at"`
	Exists   bool   `json:"exists"`
}

// Definition returns the tool's definition for MCP registration
func (t *ListRecentWorkbooksTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List workbooks recently opened through this server, most recent first, with whether each file still exists. Use open_excel_file with a listed path to reopen one."),
	}, readOnly()...)
	return mcp.NewTool("list_recent_workbooks", opts...)
}

// Execute returns recently opened workbooks as a JSON list
func (t *ListRecentWorkbooksTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	recent := stateFrom(cache).RecentWorkbooks()
	entries := make([]recentEntry, 0, len(recent))
	for _, r := range recent {
		_, err := os.Stat(r.Path)
		entries = append(entries, recentEntry{
			Path:     r.Path,
			OpenedAt: time.Unix(r.OpenedAt, 0).Format(time.RFC3339),
			Exists:   err == nil,
		})
	}
	return newToolResultJSON(entries)
}
