package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sirupsen/logrus"
)

var (
	// mu guards toolRegistry and disabledList
	mu sync.RWMutex

	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledList holds the DISABLED_TOOLS entries, tool or group names
	disabledList string

	// logger is the shared logger instance
	logger *logrus.Logger

	// cache is the shared cache instance
	cache *sync.Map
)

// Init initialises the registry and shared resources
func Init(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()

	logger = l
	cache = &sync.Map{}

	parseDisabledToolsLocked()
}

// parseDisabledToolsLocked reads the DISABLED_TOOLS environment variable
func parseDisabledToolsLocked() {
	disabledList = os.Getenv(tools.DisabledToolsEnvVar)
	if disabledList == "" || logger == nil {
		return
	}

	count := 0
	for entry := range strings.SplitSeq(disabledList, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			logger.WithField("tool", entry).Debug("Tool disabled")
			count++
		}
	}
	logger.WithField("count", count).Debug("Parsed disabled tools from environment")
}

// ShouldRegisterTool reports whether a tool is served. Every registered tool
// is served unless DISABLED_TOOLS names it or its group.
func ShouldRegisterTool(toolName string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return shouldServeLocked(toolName)
}

func shouldServeLocked(toolName string) bool {
	return !tools.IsToolListed(disabledList, toolName)
}

// Register adds a tool implementation to the registry. Whether it is served
// is decided when the server asks for the enabled tools, after Init has read
// the environment.
func Register(tool tools.Tool) {
	// Definition may query the registry, so it is read before locking
	toolName := tool.Definition().Name

	mu.Lock()
	defer mu.Unlock()

	toolRegistry[toolName] = tool
	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool registered")
	}
}

// GetTool retrieves a tool by name, returns false if it is unknown or disabled
func GetTool(name string) (tools.Tool, bool) {
	mu.RLock()
	defer mu.RUnlock()

	tool, ok := toolRegistry[name]
	if !ok || !shouldServeLocked(name) {
		return nil, false
	}
	return tool, true
}

// GetEnabledTools returns all tools that are enabled for MCP server registration
func GetEnabledTools() map[string]tools.Tool {
	mu.RLock()
	defer mu.RUnlock()

	filteredTools := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if !shouldServeLocked(name) {
			if logger != nil {
				logger.WithField("tool", name).Debug("Tool disabled, not served")
			}
			continue
		}
		filteredTools[name] = tool
	}
	return filteredTools
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance
func GetCache() *sync.Map {
	return cache
}

// GetEnabledToolNames returns a sorted list of enabled tool names
func GetEnabledToolNames() []string {
	var names []string
	for name := range GetEnabledTools() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of enabled tool names that provide extended help
func GetToolNamesWithExtendedHelp() []string {
	var names []string
	for name, tool := range GetEnabledTools() {
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
