package telemetry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	minTokenLength = 20
	// maxValueLength caps single string arguments such as cell values
	maxValueLength = 200
)

var apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|secret|password|passwd|pwd|auth|authorization)[\s:=]+["']?([^\s"']+)`)

// SanitiseArguments renders tool arguments for a span attribute. Secrets are
// redacted, long strings truncated and cell matrices reduced to their shape,
// so workbook contents are not copied into traces.
func SanitiseArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	sanitised := make(map[string]any, len(args))
	for key, value := range args {
		sanitised[key] = sanitiseValue(key, value)
	}

	jsonBytes, err := json.Marshal(sanitised)
	if err != nil {
		return `{"error": "failed to serialise arguments"}`
	}
	return string(jsonBytes)
}

func sanitiseValue(key string, value any) any {
	if isSecretKey(key) {
		return "[REDACTED]"
	}

	switch v := value.(type) {
	case []any:
		return describeList(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = sanitiseValue(k, inner)
		}
		return out
	case string:
		return sanitiseString(v)
	default:
		return value
	}
}

// describeList summarises a list argument, e.g. "[3x2 values]"
func describeList(list []any) string {
	cols := 0
	for _, row := range list {
		inner, ok := row.([]any)
		if !ok {
			return fmt.Sprintf("[1x%d values]", len(list))
		}
		cols = max(cols, len(inner))
	}
	return fmt.Sprintf("[%dx%d values]", len(list), cols)
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"key", "token", "secret", "password", "auth", "credential"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

func sanitiseString(s string) string {
	if apiKeyPattern.MatchString(s) {
		return apiKeyPattern.ReplaceAllString(s, "$1=[REDACTED]")
	}
	if len(s) > minTokenLength && isTokenLike(s) {
		return s[:4] + "...[REDACTED]"
	}
	return TruncateString(s, maxValueLength)
}

// isTokenLike reports whether s consists only of characters common in API tokens
func isTokenLike(s string) bool {
	for _, char := range s {
		isValid := (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_'
		if !isValid {
			return false
		}
	}
	return true
}

// TruncateString truncates a string to a maximum length with ellipsis
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
