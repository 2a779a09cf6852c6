package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// CreateTestLogger creates a logger suitable for testing
func CreateTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

// CreateTestCache creates a cache suitable for testing
func CreateTestCache() *sync.Map {
	return &sync.Map{}
}

// CreateTestContext creates a context suitable for testing
func CreateTestContext() context.Context {
	return context.Background()
}

// SetEnv sets an environment variable for the duration of a test
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// Sheet is the content of one worksheet keyed by cell reference. Values
// starting with '=' are written as formulas.
type Sheet map[string]any

// WriteWorkbook creates an xlsx file at dir/name with the given sheets and
// returns its path. Sheets are created in name order unless "Sheet1" is
// present, which keeps its default position.
func WriteWorkbook(t *testing.T, dir, name string, sheets map[string]Sheet) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			t.Logf("Warning: failed to close workbook: %v", err)
		}
	}()

	names := make([]string, 0, len(sheets))
	for sheet := range sheets {
		names = append(names, sheet)
	}
	sort.Strings(names)

	for _, sheet := range names {
		if sheet != "Sheet1" {
			if _, err := f.NewSheet(sheet); err != nil {
				t.Fatalf("Failed to create sheet %s: %v", sheet, err)
			}
		}
		for ref, value := range sheets[sheet] {
			var err error
			if s, ok := value.(string); ok && len(s) > 1 && s[0] == '=' {
				err = f.SetCellFormula(sheet, ref, s[1:])
			} else {
				err = f.SetCellValue(sheet, ref, value)
			}
			if err != nil {
				t.Fatalf("Failed to set %s!%s: %v", sheet, ref, err)
			}
		}
	}
	if _, ok := sheets["Sheet1"]; !ok && len(names) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("Failed to delete default sheet: %v", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to create test workbook: %v", err)
	}
	return path
}

// ResultText returns the text of the first content block of a tool result
func ResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected a tool result, got nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}
