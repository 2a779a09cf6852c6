package toolhelp_test

import (
	"encoding/json"
	"testing"

	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/testutils"
	_ "github.com/sammcj/mcp-excel/internal/tools/excel"
	"github.com/sammcj/mcp-excel/internal/tools/utilities/toolhelp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolHelp_Definition(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "")
	registry.Init(testutils.CreateTestLogger())

	def := (&toolhelp.ToolHelpTool{}).Definition()
	assert.Equal(t, "get_tool_help", def.Name)
	assert.Contains(t, def.InputSchema.Required, "tool_name")

	names := registry.GetToolNamesWithExtendedHelp()
	assert.Contains(t, names, "write_range")
	assert.Contains(t, names, "find_excel_files_in_downloads")

	// Disabled tools are left out of the help list
	t.Setenv("DISABLED_TOOLS", "downloads")
	registry.Init(testutils.CreateTestLogger())
	assert.NotContains(t, registry.GetToolNamesWithExtendedHelp(), "find_excel_files_in_downloads")
}

func TestToolHelp_Execute(t *testing.T) {
	registry.Init(testutils.CreateTestLogger())
	tool := &toolhelp.ToolHelpTool{}

	result, err := tool.Execute(testutils.CreateTestContext(), testutils.CreateTestLogger(), testutils.CreateTestCache(), map[string]any{
		"tool_name": "write_range",
	})
	require.NoError(t, err)

	var response toolhelp.ToolHelpResponse
	require.NoError(t, json.Unmarshal([]byte(testutils.ResultText(t, result)), &response))
	assert.Equal(t, "write_range", response.ToolName)
	require.NotNil(t, response.ExtendedInfo)
	assert.NotEmpty(t, response.ExtendedInfo.Examples)

	// Required parameters are listed first
	require.Len(t, response.Parameters, 3)
	assert.Equal(t, "sheet_name", response.Parameters[0].Name)
	assert.True(t, response.Parameters[0].Required)
	assert.Equal(t, "values", response.Parameters[2].Name)
	assert.Equal(t, "array", response.Parameters[2].Type)
}

func TestToolHelp_Errors(t *testing.T) {
	registry.Init(testutils.CreateTestLogger())
	tool := &toolhelp.ToolHelpTool{}
	ctx, logger, cache := testutils.CreateTestContext(), testutils.CreateTestLogger(), testutils.CreateTestCache()

	_, err := tool.Execute(ctx, logger, cache, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_name")

	_, err = tool.Execute(ctx, logger, cache, map[string]any{"tool_name": "no_such_tool"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or not enabled")
	assert.Contains(t, err.Error(), "read_range_table")

	_, err = tool.Execute(ctx, logger, cache, map[string]any{"tool_name": "read_cell"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not provide extended help")

	t.Setenv("DISABLED_TOOLS", "write_range")
	registry.Init(testutils.CreateTestLogger())
	_, err = tool.Execute(ctx, logger, cache, map[string]any{"tool_name": "write_range"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or not enabled")
}
