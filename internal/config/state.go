package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// RecentWorkbook is a workbook that was opened through the server
type RecentWorkbook struct {
	Path     string `json:"path"`
	OpenedAt int64  `json:"opened_at"` // Unix timestamp
}

// StateFile represents the persisted state for mcp-excel
type StateFile struct {
	Recent []RecentWorkbook `json:"recent_workbooks,omitempty"`

	path string
	mu   sync.RWMutex
}

var (
	globalState *StateFile
	stateOnce   sync.Once
)

// GetGlobalState returns the singleton global state
func GetGlobalState() *StateFile {
	stateOnce.Do(func() {
		globalState = LoadState(getStatePath())
	})
	return globalState
}

// LoadState loads state from path. A missing or corrupt file yields empty state.
func LoadState(path string) *StateFile {
	state := &StateFile{path: path}

	if data, err := os.ReadFile(path); err == nil {
		// Ignore JSON parsing errors and use defaults
		_ = json.Unmarshal(data, state)
	}

	return state
}

// Save saves the state to disk
func (s *StateFile) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Ensure state directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// AddRecent records a workbook as the most recently opened, keeping at most
// limit entries, and saves the state
func (s *StateFile) AddRecent(path string, limit int) error {
	s.mu.Lock()
	s.Recent = slices.DeleteFunc(s.Recent, func(r RecentWorkbook) bool { return r.Path == path })
	s.Recent = slices.Insert(s.Recent, 0, RecentWorkbook{Path: path, OpenedAt: getCurrentTimestamp()})
	if limit > 0 && len(s.Recent) > limit {
		s.Recent = s.Recent[:limit]
	}
	s.mu.Unlock()

	return s.Save()
}

// RecentWorkbooks returns recently opened workbooks, most recent first
func (s *StateFile) RecentWorkbooks() []RecentWorkbook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.Recent)
}

// getStatePath returns the path to the global state file
func getStatePath() string {
	// Check for custom state path from environment
	if customPath := os.Getenv("MCP_EXCEL_STATE_PATH"); customPath != "" {
		return customPath
	}

	// Default to ~/.mcp-excel/state.json
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, AppDirName, "state.json")
}

// getCurrentTimestamp returns the current Unix timestamp
func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
