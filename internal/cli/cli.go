// Package cli runs the workbook tools directly from the command line,
// bypassing the MCP server. Tools are invoked in-process through the registry.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Runner executes CLI commands against the tool registry. Every tool call made
// through one Runner shares its cache, so a workbook opened by one call stays
// active for the next.
type Runner struct {
	logger *logrus.Logger
	cache  *sync.Map
	output OutputFormat
	out    io.Writer
}

// NewRunner creates a Runner writing to out
func NewRunner(logger *logrus.Logger, cache *sync.Map, output OutputFormat, out io.Writer) *Runner {
	return &Runner{logger: logger, cache: cache, output: output, out: out}
}

// ListTools prints all enabled tools with their descriptions.
func (r *Runner) ListTools() error {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	var entries []entry
	for _, name := range registry.GetEnabledToolNames() {
		tool, ok := registry.GetTool(name)
		if !ok {
			continue
		}
		entries = append(entries, entry{Name: name, Description: firstSentence(tool.Definition().Description)})
	}

	if r.output == OutputJSON {
		return r.writeJSON(entries)
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
	}
	return w.Flush()
}

// HelpTool prints the parameters of a single tool.
func (r *Runner) HelpTool(name string) error {
	resolved, ok := resolveTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	tool, _ := registry.GetTool(resolved)
	def := tool.Definition()

	if r.output == OutputJSON {
		return r.writeJSON(def)
	}

	fmt.Fprintf(r.out, "Tool: %s\n\n%s\n\n", def.Name, def.Description)

	props := def.InputSchema.Properties
	if len(props) == 0 {
		fmt.Fprintln(r.out, "No parameters.")
		return nil
	}

	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	slices.Sort(names)

	fmt.Fprintln(r.out, "Parameters:")
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, pName := range names {
		pMap, ok := props[pName].(map[string]any)
		if !ok {
			continue
		}
		pType, _ := pMap["type"].(string)
		pDesc, _ := pMap["description"].(string)

		reqMark := ""
		if slices.Contains(def.InputSchema.Required, pName) {
			reqMark = " (required)"
		}
		fmt.Fprintf(w, "  --%s\t%s\t%s%s%s\n", toFlagName(pName), pType, firstSentence(pDesc), reqMark, formatEnum(pMap))
	}
	return w.Flush()
}

// RunTool executes a tool by name. args are --key=value flags, --key value
// pairs, bare --flag booleans, or a JSON object. Flags take precedence over JSON.
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	resolved, ok := resolveTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'mcp-excel cli list' to see available tools)", name)
	}
	tool, _ := registry.GetTool(resolved)

	params, err := parseArgs(args, tool.Definition())
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}
	return r.call(ctx, resolved, params)
}

// SessionCall is one line of a session script
type SessionCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// RunSession executes tool calls read from in, one JSON object per line, e.g.
//
//	{"tool": "open_excel_file", "arguments": {"file_path": "report.xlsx"}}
//	{"tool": "read_range_table", "arguments": {"sheet_name": "Sheet1", "range_address": "A1:C5"}}
//
// Blank lines and lines starting with '#' are skipped. The session stops at
// the first failing call.
func (r *Runner) RunSession(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var call SessionCall
		if err := json.Unmarshal([]byte(line), &call); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}
		resolved, ok := resolveTool(call.Tool)
		if !ok {
			return fmt.Errorf("line %d: unknown tool: %s", lineNo, call.Tool)
		}
		if call.Arguments == nil {
			call.Arguments = map[string]any{}
		}

		if r.output == OutputText {
			fmt.Fprintf(r.out, "> %s\n", resolved)
		}
		if err := r.call(ctx, resolved, call.Arguments); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func (r *Runner) call(ctx context.Context, name string, params map[string]any) error {
	tool, _ := registry.GetTool(name)
	r.logger.WithField("tool", name).Debug("Running tool from CLI")

	result, err := tool.Execute(ctx, r.logger, r.cache, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}
	return r.renderResult(result)
}

// parseArgs converts CLI arguments into tool parameters
func parseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	params := make(map[string]any)
	schema := buildSchemaInfo(def)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(arg), &obj); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			for k, v := range obj {
				if _, exists := params[k]; !exists {
					params[k] = v
				}
			}
			continue
		}

		if strings.HasPrefix(arg, "--") {
			key, val, err := parseFlag(arg, args, &i, schema)
			if err != nil {
				return nil, err
			}
			params[key] = val
			continue
		}

		return nil, fmt.Errorf("unexpected argument: %s (use --key=value flags or pass a JSON object)", arg)
	}

	return params, nil
}

// schemaInfo holds the parameter types and kebab-case flag names of a tool
type schemaInfo struct {
	typeMap     map[string]string
	flagToParam map[string]string
}

// parseFlag parses --key=value, --key value or a bare boolean --flag
func parseFlag(arg string, args []string, idx *int, schema schemaInfo) (string, any, error) {
	stripped := strings.TrimPrefix(arg, "--")

	if flagName, rawVal, found := strings.Cut(stripped, "="); found {
		paramName := schema.resolveParam(flagName)
		return paramName, coerceValue(rawVal, schema.typeMap[paramName]), nil
	}

	paramName := schema.resolveParam(stripped)
	if schema.typeMap[paramName] == "boolean" {
		return paramName, true, nil
	}

	*idx++
	if *idx >= len(args) {
		return "", nil, fmt.Errorf("flag --%s requires a value", stripped)
	}
	return paramName, coerceValue(args[*idx], schema.typeMap[paramName]), nil
}

func (s schemaInfo) resolveParam(flagName string) string {
	if actual, ok := s.flagToParam[flagName]; ok {
		return actual
	}
	return strings.ReplaceAll(flagName, "-", "_")
}

func buildSchemaInfo(def mcp.Tool) schemaInfo {
	info := schemaInfo{
		typeMap:     make(map[string]string, len(def.InputSchema.Properties)),
		flagToParam: make(map[string]string, len(def.InputSchema.Properties)),
	}
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			if t, ok := pm["type"].(string); ok {
				info.typeMap[name] = t
			}
		}
		info.flagToParam[toFlagName(name)] = name
	}
	return info
}

// coerceValue converts a flag value to the JSON Schema type of its parameter.
// Cell values stay strings so the workbook applies its own typed-input rules.
func coerceValue(raw, schemaType string) any {
	switch schemaType {
	case "number", "integer":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	case "boolean":
		if b, err := strconv.ParseBool(strings.ToLower(raw)); err == nil {
			return b
		}
		return raw
	case "array":
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return arr
		}
		// A bare comma separated list is one row
		return []any{toAny(strings.Split(raw, ","))}
	default:
		return raw
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// renderResult prints a tool result. Error results are printed and returned as an error.
func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}

	if r.output == OutputJSON {
		if err := r.writeJSON(result); err != nil {
			return err
		}
	} else {
		for _, content := range result.Content {
			if c, ok := content.(mcp.TextContent); ok {
				fmt.Fprintln(r.out, c.Text)
				continue
			}
			data, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render content: %w", err)
			}
			fmt.Fprintln(r.out, string(data))
		}
	}

	if result.IsError {
		return fmt.Errorf("tool returned an error")
	}
	return nil
}

// resolveTool accepts kebab-case names, since CLI users naturally type them
func resolveTool(name string) (string, bool) {
	if _, ok := registry.GetTool(name); ok {
		return name, true
	}
	snakeName := strings.ReplaceAll(name, "-", "_")
	if _, ok := registry.GetTool(snakeName); ok {
		return snakeName, true
	}
	return name, false
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstSentence(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	if before, _, found := strings.Cut(s, ". "); found {
		return before + "."
	}
	return s
}

// toFlagName converts snake_case to kebab-case
func toFlagName(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

func formatEnum(pMap map[string]any) string {
	var vals []string
	switch enum := pMap["enum"].(type) {
	case []string:
		vals = enum
	case []any:
		for _, v := range enum {
			vals = append(vals, fmt.Sprint(v))
		}
	}
	if len(vals) == 0 {
		return ""
	}
	return " [" + strings.Join(vals, "|") + "]"
}
