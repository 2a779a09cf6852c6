// Package imports registers the tools served by the MCP server
package imports

import (
	_ "github.com/sammcj/mcp-excel/internal/tools/excel"
	_ "github.com/sammcj/mcp-excel/internal/tools/utilities/toolhelp"
)
