package testutils

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// MockTool is a tools.Tool that records its calls
type MockTool struct {
	definition mcp.Tool
	executeErr error
	result     *mcp.CallToolResult

	mu       sync.Mutex
	calls    int
	lastArgs map[string]any
}

// NewMockTool creates a new mock tool
func NewMockTool(name string) *MockTool {
	return &MockTool{
		definition: mcp.NewTool(name,
			mcp.WithDescription("Mock tool for testing"),
			mcp.WithString("sheet_name",
				mcp.Description("Test sheet parameter"),
			),
		),
		result: mcp.NewToolResultText("mock result"),
	}
}

// WithError configures the mock to return an error
func (m *MockTool) WithError(err error) *MockTool {
	m.executeErr = err
	return m
}

// WithResult configures the mock to return a specific result
func (m *MockTool) WithResult(result *mcp.CallToolResult) *MockTool {
	m.result = result
	return m
}

// Calls returns how many times Execute has run
func (m *MockTool) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastArgs returns the arguments of the latest Execute
func (m *MockTool) LastArgs() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArgs
}

// Definition returns the tool's definition for MCP registration
func (m *MockTool) Definition() mcp.Tool {
	return m.definition
}

// Execute returns the configured result or error
func (m *MockTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastArgs = args
	m.mu.Unlock()
	if m.executeErr != nil {
		return nil, m.executeErr
	}
	return m.result, nil
}
