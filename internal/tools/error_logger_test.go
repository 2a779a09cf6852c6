package tools

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []ToolErrorLogEntry {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	var entries []ToolErrorLogEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry ToolErrorLogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestToolErrorLogger_LogToolError(t *testing.T) {
	dir := t.TempDir()
	l, err := NewToolErrorLogger(logrus.New(), dir)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	rows := make([]any, 8)
	for i := range rows {
		rows[i] = []any{"x"}
	}
	l.LogToolError("write_range", map[string]any{"sheet_name": "Sheet1", "values": rows}, errors.New("boom"), "stdio")

	path := filepath.Join(dir, ErrorLogFileName)
	assert.Equal(t, path, l.GetLogFilePath())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "write_range", entries[0].ToolName)
	assert.Equal(t, "boom", entries[0].Error)
	assert.Equal(t, "stdio", entries[0].Transport)
	assert.Len(t, entries[0].Arguments["values"], maxLoggedMatrixRows)
	assert.EqualValues(t, 8, entries[0].Arguments["values_rows"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestToolErrorLogger_Disabled(t *testing.T) {
	l := GetGlobalErrorLogger()
	assert.False(t, l.IsEnabled())
	l.LogToolError("read_cell", nil, errors.New("ignored"), "stdio")
	assert.NoError(t, l.Close())
}

func TestToolErrorLogger_Rotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ErrorLogFileName)

	old, err := json.Marshal(ToolErrorLogEntry{Timestamp: time.Now().AddDate(0, 0, -90).Format(time.RFC3339), ToolName: "old", Error: "e"})
	require.NoError(t, err)
	recent, err := json.Marshal(ToolErrorLogEntry{Timestamp: time.Now().Format(time.RFC3339), ToolName: "recent", Error: "e"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(string(old)+"\n"+string(recent)+"\n"), 0600))

	l, err := NewToolErrorLogger(logrus.New(), dir)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, l.rotateOldLogs(DefaultLogRetentionDays))

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].ToolName)

	// The file is writable again after rotation
	l.LogToolError("after", nil, errors.New("e"), "")
	assert.Len(t, readEntries(t, path), 2)
}

func TestPruneEntries(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lines := []string{
		"",
		`{"timestamp":"2025-06-01T00:00:00Z","tool_name":"a","error":"x"}`,
		`{"timestamp":"2026-06-01T00:00:00Z","tool_name":"b","error":"x"}`,
		`{"timestamp":"yesterday","tool_name":"c","error":"x"}`,
		`not json`,
	}

	kept := pruneEntries(lines, cutoff)
	assert.Equal(t, []string{lines[2], lines[3], lines[4]}, kept)
}
