package excel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/downloads"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sirupsen/logrus"
)

// noFilesMessage is returned when the Downloads folder holds no workbooks
const noFilesMessage = "No Excel files found in Downloads folder"

// FindExcelFilesInDownloadsTool lists recent workbooks in the Downloads folder
type FindExcelFilesInDownloadsTool struct{}

// OpenRecentExcelFileTool opens the newest workbook in the Downloads folder
type OpenRecentExcelFileTool struct{}

func init() {
	registry.Register(&FindExcelFilesInDownloadsTool{})
	registry.Register(&OpenRecentExcelFileTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *FindExcelFilesInDownloadsTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Find Excel (.xlsx) files anywhere under the Downloads folder, most recently modified first."),
	}, readOnly()...)
	return mcp.NewTool("find_excel_files_in_downloads", opts...)
}

// Execute returns the file paths as a JSON list
func (t *FindExcelFilesInDownloadsTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	finder := finderFrom(cache, logger)
	files, err := finder.Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return newToolResultJSON([]string{noFilesMessage})
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	logger.WithFields(logrus.Fields{"dir": finder.Dir(), "count": len(paths)}).Debug("Found workbooks in Downloads")
	return newToolResultJSON(paths)
}

// ProvideExtendedInfo provides detailed usage information for find_excel_files_in_downloads
func (t *FindExcelFilesInDownloadsTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		CommonPatterns: []string{
			"Pick a path from the list and pass it to open_excel_file",
			"Use open_recent_excel_file when the newest download is the one wanted",
		},
		ParameterDetails: map[string]string{
			"EXCEL_DOWNLOADS_DIR": "Folder that is searched, ~/Downloads by default",
			"EXCEL_RECENT_LIMIT":  "Maximum number of files listed, 20 by default",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "A file that was just downloaded is missing",
				Solution: "Results are cached briefly (EXCEL_SCAN_CACHE_TTL). Files in sub-folders appear once the cache expires.",
			},
		},
		WhenToUse: "The user refers to a spreadsheet they downloaded without giving its path.",
	}
}

// Definition returns the tool's definition for MCP registration
func (t *OpenRecentExcelFileTool) Definition() mcp.Tool {
	return mcp.NewTool("open_recent_excel_file",
		mcp.WithDescription("Open the most recently modified Excel file from the Downloads folder and make it the active workbook."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute opens the newest workbook in Downloads
func (t *OpenRecentExcelFileTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	recent, err := finderFrom(cache, logger).MostRecent(ctx)
	if errors.Is(err, downloads.ErrNoFiles) {
		return mcp.NewToolResultText(noFilesMessage), nil
	}
	if err != nil {
		return nil, err
	}

	if err := checkAccess(cache, logger, recent.Path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
	}
	book, err := appFrom(cache, logger).Open(recent.Path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Opened most recent file: %s with sheets: %s", book.Name, formatSheetList(book.SheetNames()))), nil
}
