package tools

import (
	"strings"
)

// DisabledToolsEnvVar lists tools that are not served, comma separated
const DisabledToolsEnvVar = "DISABLED_TOOLS"

// toolGroups are names that select several tools at once
var toolGroups = map[string][]string{
	"downloads": {"find_excel_files_in_downloads", "open_recent_excel_file"},
}

// IsToolListed reports whether a comma-separated list of tool or group names
// selects toolName. Names are case-insensitive, spaces are ignored and
// underscores match hyphens.
//
// Example: DISABLED_TOOLS="downloads,write-range"
//
// Groups:
// - downloads: find_excel_files_in_downloads, open_recent_excel_file
func IsToolListed(list, toolName string) bool {
	if strings.TrimSpace(list) == "" {
		return false
	}

	target := NormaliseToolName(toolName)
	for entry := range strings.SplitSeq(list, ",") {
		name := NormaliseToolName(entry)
		if name == "" {
			continue
		}
		if name == target {
			return true
		}
		for _, member := range toolGroups[name] {
			if NormaliseToolName(member) == target {
				return true
			}
		}
	}
	return false
}

// NormaliseToolName lowercases a tool name, trims spaces and replaces underscores with hyphens
func NormaliseToolName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
}
