package telemetry

// Attribute names for spans. Tool and session names follow the MCP
// observability conventions, workbook names are specific to this server.
const (
	AttrMCPToolName    = "mcp.tool.name"
	AttrMCPToolSuccess = "mcp.tool.result.success"
	AttrMCPToolError   = "mcp.tool.result.error"
	AttrMCPToolArgs    = "mcp.tool.arguments"
	AttrMCPSessionID   = "mcp.session.id"
	AttrMCPTransport   = "mcp.transport"

	AttrWorkbookSheet     = "workbook.sheet"
	AttrWorkbookRange     = "workbook.range"
	AttrWorkbookCells     = "workbook.cells"
	AttrWorkbookOperation = "workbook.operation"
)

// Span names
const (
	SpanNameSession     = "mcp.session"
	SpanNameToolExecute = "mcp.tool.execute"
	SpanNameHTTPServer  = "mcp.http"
)

// serviceName is reported when OTEL_SERVICE_NAME is not set
const serviceName = "mcp-excel"
