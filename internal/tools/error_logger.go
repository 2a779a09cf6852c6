package tools

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ToolErrorLogEntry represents a logged tool error
type ToolErrorLogEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error"`
	Transport string         `json:"transport,omitempty"`
}

// ToolErrorLogger appends failed tool calls to a JSON lines file
type ToolErrorLogger struct {
	enabled  bool
	logFile  *os.File
	logger   *logrus.Logger
	mu       sync.Mutex
	filePath string
}

var (
	globalErrorLogger *ToolErrorLogger
	errorLoggerOnce   sync.Once
)

const (
	// DefaultLogRetentionDays is the default number of days to retain error logs
	DefaultLogRetentionDays = 60

	// ErrorLogFileName is the file tool errors are written to inside the log directory
	ErrorLogFileName = "tool-errors.log"

	// maxLoggedMatrixRows bounds how much of a written matrix ends up in the log
	maxLoggedMatrixRows = 5
)

// InitGlobalErrorLogger initialises the global error logger in logDir.
// Logging only happens when LOG_TOOL_ERRORS=true.
func InitGlobalErrorLogger(logger *logrus.Logger, logDir string) error {
	var initErr error
	errorLoggerOnce.Do(func() {
		if os.Getenv("LOG_TOOL_ERRORS") != "true" {
			globalErrorLogger = &ToolErrorLogger{enabled: false, logger: logger}
			return
		}

		globalErrorLogger, initErr = NewToolErrorLogger(logger, logDir)
		if initErr != nil {
			globalErrorLogger = &ToolErrorLogger{enabled: false, logger: logger}
			return
		}

		// Perform log rotation in background to avoid blocking startup
		go func() {
			if rotateErr := globalErrorLogger.rotateOldLogs(DefaultLogRetentionDays); rotateErr != nil {
				logger.WithError(rotateErr).Warn("Failed to rotate old tool error logs")
			}
		}()

		logger.Infof("Tool error logging enabled: %s", globalErrorLogger.filePath)
	})

	return initErr
}

// NewToolErrorLogger opens (or creates) the error log in logDir
func NewToolErrorLogger(logger *logrus.Logger, logDir string) (*ToolErrorLogger, error) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &ToolErrorLogger{
		enabled:  true,
		logger:   logger,
		filePath: filepath.Join(logDir, ErrorLogFileName),
	}
	if err := l.reopenLogFileLocked(); err != nil {
		return nil, fmt.Errorf("failed to open tool error log file: %w", err)
	}
	return l, nil
}

// GetGlobalErrorLogger returns the global error logger instance
func GetGlobalErrorLogger() *ToolErrorLogger {
	if globalErrorLogger == nil {
		// Return a disabled logger if not initialised
		return &ToolErrorLogger{enabled: false}
	}
	return globalErrorLogger
}

// LogToolError logs a tool execution error
func (l *ToolErrorLogger) LogToolError(toolName string, args map[string]any, err error, transport string) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return
	}

	entry := ToolErrorLogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		ToolName:  toolName,
		Arguments: trimArguments(args),
		Error:     err.Error(),
		Transport: transport,
	}

	jsonData, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		l.logf(marshalErr, "Failed to marshal tool error log entry")
		return
	}

	if _, writeErr := l.logFile.Write(append(jsonData, '\n')); writeErr != nil {
		l.logf(writeErr, "Failed to write tool error log entry")
		return
	}

	if syncErr := l.logFile.Sync(); syncErr != nil {
		l.logf(syncErr, "Failed to sync tool error log file")
	}
}

func (l *ToolErrorLogger) logf(err error, msg string) {
	if l.logger != nil {
		l.logger.WithError(err).Error(msg)
	}
}

// Close closes the error logger and its log file
func (l *ToolErrorLogger) Close() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// IsEnabled returns whether error logging is enabled
func (l *ToolErrorLogger) IsEnabled() bool {
	return l.enabled
}

// GetLogFilePath returns the path to the error log file
func (l *ToolErrorLogger) GetLogFilePath() string {
	return l.filePath
}

// trimArguments keeps large write payloads out of the log. A "values" matrix
// is cut to its first rows with a note of its full size.
func trimArguments(args map[string]any) map[string]any {
	values, ok := args["values"].([]any)
	if !ok || len(values) <= maxLoggedMatrixRows {
		return args
	}

	trimmed := make(map[string]any, len(args)+1)
	for k, v := range args {
		trimmed[k] = v
	}
	trimmed["values"] = values[:maxLoggedMatrixRows]
	trimmed["values_rows"] = len(values)
	return trimmed
}

// rotateOldLogs removes log entries older than the retention period.
// Holds the mutex for the entire operation so LogToolError never writes to
// a closed file during rotation.
func (l *ToolErrorLogger) rotateOldLogs(retentionDays int) error {
	if !l.enabled || l.filePath == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			return fmt.Errorf("failed to close log file for rotation: %w", err)
		}
		l.logFile = nil
	}

	file, err := os.Open(l.filePath)
	if err != nil {
		return l.reopenLogFileLocked()
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	scanErr := scanner.Err()
	_ = file.Close()

	if scanErr != nil {
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("error reading log file during rotation: %w", scanErr)
	}

	kept := pruneEntries(lines, time.Now().AddDate(0, 0, -retentionDays))

	// Write back only kept entries using atomic file replacement
	tmpPath := l.filePath + ".tmp"
	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("failed to write temporary rotated log file: %w", err)
	}

	if err := os.Rename(tmpPath, l.filePath); err != nil {
		_ = os.Remove(tmpPath)
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("failed to rename temporary log file during rotation: %w", err)
	}

	return l.reopenLogFileLocked()
}

// pruneEntries drops blank lines and entries logged before cutoff. Lines that
// do not parse are kept to avoid data loss.
func pruneEntries(lines []string, cutoff time.Time) []string {
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry ToolErrorLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			kept = append(kept, line)
			continue
		}

		entryTime, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || entryTime.After(cutoff) {
			kept = append(kept, line)
		}
	}
	return kept
}

// reopenLogFileLocked reopens the log file in append mode.
// Caller must hold l.mu.
func (l *ToolErrorLogger) reopenLogFileLocked() error {
	logFile, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to reopen log file: %w", err)
	}

	l.logFile = logFile
	return nil
}
