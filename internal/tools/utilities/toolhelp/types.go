package toolhelp

import (
	"cmp"
	"slices"

	"github.com/sammcj/mcp-excel/internal/tools"
)

// ToolHelpResponse is the output of get_tool_help
type ToolHelpResponse struct {
	ToolName     string              `json:"tool_name"`
	Description  string              `json:"description"`
	Parameters   []ParameterInfo     `json:"parameters"`
	ExtendedInfo *tools.ExtendedHelp `json:"extended_info,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// ParameterInfo summarises one input parameter
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// sortParameters puts required parameters first, then orders by name
func sortParameters(params []ParameterInfo) {
	slices.SortFunc(params, func(a, b ParameterInfo) int {
		if a.Required != b.Required {
			if a.Required {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
