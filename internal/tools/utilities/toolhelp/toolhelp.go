package toolhelp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sirupsen/logrus"
)

// ToolHelpTool returns usage examples and troubleshooting tips for the workbook tools
type ToolHelpTool struct{}

func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration. The enum is
// rebuilt on every call so it only lists tools that are currently served.
func (t *ToolHelpTool) Definition() mcp.Tool {
	withHelp := registry.GetToolNamesWithExtendedHelp()

	description := "Get usage examples, parameter details and troubleshooting tips for a workbook tool. Use it after an unexpected error or result."
	if len(withHelp) == 0 {
		description = "No tools currently provide extended help information."
	}

	return mcp.NewTool(
		"get_tool_help",
		mcp.WithDescription(description),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool to get help for, e.g. 'write_range'"),
			mcp.Enum(withHelp...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute looks the tool up in the registry and returns its help as JSON
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, ok := args["tool_name"].(string)
	toolName = strings.TrimSpace(toolName)
	if !ok || toolName == "" {
		return nil, fmt.Errorf("invalid parameters: missing or invalid required parameter: tool_name")
	}

	tool, exists := registry.GetTool(toolName)
	if !exists {
		return nil, fmt.Errorf("tool '%s' not found or not enabled. Tools with extended help: %s", toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	provider, ok := tool.(tools.ExtendedHelpProvider)
	if !ok {
		return nil, fmt.Errorf("tool '%s' does not provide extended help. Tools with extended help: %s", toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	definition := tool.Definition()
	response := &ToolHelpResponse{
		ToolName:    toolName,
		Description: definition.Description,
		Parameters:  parameterNames(definition),
	}

	if info := provider.ProvideExtendedInfo(); info != nil {
		response.ExtendedInfo = info
	} else {
		response.Message = fmt.Sprintf("Tool '%s' returned no extended information", toolName)
	}

	logger.WithField("tool", toolName).Debug("Provided extended help")

	out, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// parameterNames lists a tool's parameters, marking the required ones
func parameterNames(definition mcp.Tool) []ParameterInfo {
	required := make(map[string]bool, len(definition.InputSchema.Required))
	for _, name := range definition.InputSchema.Required {
		required[name] = true
	}

	params := make([]ParameterInfo, 0, len(definition.InputSchema.Properties))
	for name, schema := range definition.InputSchema.Properties {
		info := ParameterInfo{Name: name, Required: required[name]}
		if props, ok := schema.(map[string]any); ok {
			info.Type, _ = props["type"].(string)
			info.Description, _ = props["description"].(string)
		}
		params = append(params, info)
	}
	sortParameters(params)
	return params
}
