// Package harness drives the MCP server through a coding agent and checks
// both the agent's answer and the workbook it leaves behind.
package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCommand is the agent CLI invoked for each scenario
	DefaultCommand = "claude"
	// DefaultTimeout bounds a single agent run
	DefaultTimeout = 30 * time.Second
	// DefaultMaxResponseSize caps the agent output kept in memory
	DefaultMaxResponseSize = 2 * 1024 * 1024

	// PermissionsModeEnvVar set to "enabled" lets the agent skip permission
	// prompts, which unattended runs need for the server's write tools
	PermissionsModeEnvVar = "AGENT_PERMISSIONS_MODE"
	// MaxResponseSizeEnvVar overrides DefaultMaxResponseSize, in bytes
	MaxResponseSizeEnvVar = "AGENT_MAX_RESPONSE_SIZE"
	// ExtraArgsEnvVar holds additional agent arguments, split like a shell
	// would, e.g. "--mcp-config ./mcp.json"
	ExtraArgsEnvVar = "AGENT_EXTRA_ARGS"
)

// ErrTimeout is reported when the agent does not finish in time
var ErrTimeout = errors.New("test timed out")

// Result is the outcome of one agent run
type Result struct {
	Success  bool
	Output   string
	Error    string
	Duration time.Duration
}

// Tester runs agent prompts against workbooks
type Tester struct {
	Command string
	Timeout time.Duration
	// Env is added to the agent's environment. The MCP server inherits it.
	Env    []string
	Logger *logrus.Logger
}

// NewTester returns a Tester for the default agent CLI. The server is started
// with autosave so the workbook on disk reflects the agent's writes.
func NewTester(logger *logrus.Logger, timeout time.Duration) *Tester {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tester{
		Command: DefaultCommand,
		Timeout: timeout,
		Env:     []string{"EXCEL_AUTOSAVE=true"},
		Logger:  logger,
	}
}

// RunAgent asks the agent to open the workbook and carry out prompt. The agent
// runs in the workbook's directory with shell access disabled, so it has to
// use the MCP tools.
func (t *Tester) RunAgent(ctx context.Context, prompt, workbookPath string) Result {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	fullPrompt := fmt.Sprintf("Open %s and %s", filepath.Base(workbookPath), prompt)
	cmdArgs := []string{"-p", fullPrompt, "--disallowedTools", "Bash"}
	if strings.EqualFold(os.Getenv(PermissionsModeEnvVar), "enabled") {
		cmdArgs = append(cmdArgs, "--dangerously-skip-permissions")
	}
	if systemPrompt := os.Getenv("CLAUDE_SYSTEM_PROMPT"); systemPrompt != "" {
		cmdArgs = append(cmdArgs, "--append-system-prompt", systemPrompt)
	}
	if extra := os.Getenv(ExtraArgsEnvVar); extra != "" {
		split, err := shlex.Split(extra)
		if err != nil {
			return Result{Error: fmt.Sprintf("invalid %s: %v", ExtraArgsEnvVar, err)}
		}
		cmdArgs = append(cmdArgs, split...)
	}

	t.Logger.WithFields(logrus.Fields{
		"command":  t.Command,
		"workbook": workbookPath,
	}).Debugf("Running agent: %v", cmdArgs)

	cmd := exec.CommandContext(ctx, t.Command, cmdArgs...)
	cmd.Dir = filepath.Dir(workbookPath)
	cmd.Env = append(os.Environ(), t.Env...)
	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	err := cmd.Run()
	result := Result{Output: limitResponse(outb.String(), t.Logger), Duration: time.Since(started)}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Error = ErrTimeout.Error()
	case err != nil:
		result.Error = strings.TrimSpace(errb.String())
		if result.Error == "" {
			result.Error = err.Error()
		}
	default:
		result.Success = true
	}
	return result
}

// limitResponse truncates oversized agent output at a line boundary
func limitResponse(output string, logger *logrus.Logger) string {
	maxSize := DefaultMaxResponseSize
	if size, err := strconv.Atoi(os.Getenv(MaxResponseSizeEnvVar)); err == nil && size > 0 {
		maxSize = size
	}
	if len(output) <= maxSize {
		return output
	}

	truncated := output[:maxSize]
	if cut := strings.LastIndex(truncated, "\n"); cut > maxSize/2 {
		truncated = truncated[:cut]
	}
	logger.Warnf("Agent response truncated from %d bytes to %d bytes", len(output), len(truncated))
	return truncated + "\n\n[RESPONSE TRUNCATED]"
}
