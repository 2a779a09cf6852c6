package excel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-excel/internal/config"
	"github.com/sammcj/mcp-excel/internal/downloads"
	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/security"
	"github.com/sammcj/mcp-excel/internal/workbook"
	"github.com/sirupsen/logrus"
)

// Keys of the long-lived objects the tools keep in the shared cache
const (
	AppCacheKey       = "excel:app"
	FinderCacheKey    = "excel:downloads"
	ConfigCacheKey    = "excel:config"
	StateFileCacheKey = "excel:state"
	DenyListCacheKey  = "excel:denylist"
)

// initMu serialises creation of the cached objects
var initMu sync.Mutex

// configFrom returns the config stored in the cache, or the process config
func configFrom(cache *sync.Map) *config.Config {
	if v, ok := cache.Load(ConfigCacheKey); ok {
		return v.(*config.Config)
	}
	return config.Get()
}

// stateFrom returns the state file stored in the cache, or the process state
func stateFrom(cache *sync.Map) *config.StateFile {
	if v, ok := cache.Load(StateFileCacheKey); ok {
		return v.(*config.StateFile)
	}
	return config.GetGlobalState()
}

// appFrom returns the workbook application, creating it on first use
func appFrom(cache *sync.Map, logger *logrus.Logger) *workbook.App {
	if v, ok := cache.Load(AppCacheKey); ok {
		return v.(*workbook.App)
	}

	initMu.Lock()
	defer initMu.Unlock()
	if v, ok := cache.Load(AppCacheKey); ok {
		return v.(*workbook.App)
	}

	cfg := configFrom(cache)
	state := stateFrom(cache)
	app := workbook.New(logger, workbook.Options{
		MaxCells: cfg.MaxCells,
		AutoSave: cfg.AutoSave,
		OnOpen: func(path string) {
			if err := state.AddRecent(path, cfg.RecentLimit); err != nil {
				logger.WithError(err).Warn("Failed to record recent workbook")
			}
		},
	})
	cache.Store(AppCacheKey, app)
	return app
}

// denyListFrom returns the path deny list built from the config. Invalid
// patterns were already replaced by the defaults when the config loaded.
func denyListFrom(cache *sync.Map, logger *logrus.Logger) *security.DenyList {
	if v, ok := cache.Load(DenyListCacheKey); ok {
		return v.(*security.DenyList)
	}

	initMu.Lock()
	defer initMu.Unlock()
	if v, ok := cache.Load(DenyListCacheKey); ok {
		return v.(*security.DenyList)
	}

	denyList, err := security.NewDenyList(configFrom(cache).DeniedPaths)
	if err != nil {
		logger.WithError(err).Warn("Invalid denied paths, using the defaults")
		denyList, _ = security.NewDenyList(security.DefaultDeniedPaths)
	}
	cache.Store(DenyListCacheKey, denyList)
	return denyList
}

// checkAccess refuses paths matching the deny list
func checkAccess(cache *sync.Map, logger *logrus.Logger, path string) error {
	if err := denyListFrom(cache, logger).Check(path); err != nil {
		logger.WithField("path", path).Warn("Blocked access to denied workbook path")
		return err
	}
	return nil
}

// finderFrom returns the Downloads finder, creating and watching it on first use
func finderFrom(cache *sync.Map, logger *logrus.Logger) *downloads.Finder {
	if v, ok := cache.Load(FinderCacheKey); ok {
		return v.(*downloads.Finder)
	}

	initMu.Lock()
	defer initMu.Unlock()
	if v, ok := cache.Load(FinderCacheKey); ok {
		return v.(*downloads.Finder)
	}

	cfg := configFrom(cache)
	finder := downloads.NewFinder(cfg.DownloadsDir, cfg.RecentLimit, cfg.ScanCacheTTL, logger)
	if err := finder.Watch(); err != nil {
		logger.WithError(err).Debug("Downloads watcher not started, relying on scan cache expiry")
	}
	cache.Store(FinderCacheKey, finder)
	return finder
}

// Shutdown closes open workbooks (discarding unsaved changes) and stops the
// Downloads watcher
func Shutdown(cache *sync.Map) error {
	var errs []error
	if v, ok := cache.LoadAndDelete(AppCacheKey); ok {
		errs = append(errs, v.(*workbook.App).Close())
	}
	if v, ok := cache.LoadAndDelete(FinderCacheKey); ok {
		errs = append(errs, v.(*downloads.Finder).Close())
	}
	return errors.Join(errs...)
}

// activeSheet resolves the sheet_name argument against the active workbook
func activeSheet(cache *sync.Map, logger *logrus.Logger, args map[string]any) (*workbook.Sheet, error) {
	sheetName, err := requiredString(args, "sheet_name")
	if err != nil {
		return nil, err
	}

	book, err := appFrom(cache, logger).Active()
	if err != nil {
		return nil, err
	}
	return book.Sheet(sheetName)
}

// resolvePath turns a tool path argument into an absolute path. Relative
// paths resolve against base when it is set, else the working directory.
func resolvePath(base, path string) (string, error) {
	if path == "" {
		return "", &workbook.ValidationError{Field: "file_path", Value: path, Message: "file_path parameter is required"}
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	if base == "" {
		return filepath.Abs(path)
	}

	// Relative paths must stay inside the base directory
	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", &workbook.ValidationError{Field: "file_path", Value: path, Message: "directory traversal not allowed"}
	}
	return filepath.Join(base, cleanPath), nil
}

// requiredString extracts a non-empty string argument
func requiredString(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &workbook.ValidationError{Field: name, Value: args[name], Message: name + " parameter is required"}
	}
	return strings.TrimSpace(v), nil
}

// optionalBool extracts a boolean argument, accepting "true"/"false" strings
// from clients that send everything as text
func optionalBool(args map[string]any, name string, def bool) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return def
}

// parseCellArg parses a single cell address argument such as "B5" or "Sheet1!B5"
func parseCellArg(args map[string]any, name string) (grid.Cell, error) {
	ref, err := requiredString(args, name)
	if err != nil {
		return grid.Cell{}, err
	}
	rng, err := grid.ParseRange(ref)
	if err != nil {
		return grid.Cell{}, err
	}
	if !rng.IsSingle() {
		return grid.Cell{}, &workbook.ValidationError{Field: name, Value: ref, Message: "expected a single cell, use a range tool for " + rng.String()}
	}
	return rng.Start, nil
}

// startCellArg parses the top-left cell of an address argument. A range is
// accepted and reduced to its first cell.
func startCellArg(args map[string]any, name string) (grid.Cell, error) {
	ref, err := requiredString(args, name)
	if err != nil {
		return grid.Cell{}, err
	}
	return grid.StartCell(ref)
}

// parseRangeArg parses a range address argument such as "A1:C3"
func parseRangeArg(args map[string]any, name string) (grid.Range, error) {
	ref, err := requiredString(args, name)
	if err != nil {
		return grid.Range{}, err
	}
	return grid.ParseRange(ref)
}

// formatSheetList renders sheet names the way the tool results list them,
// e.g. ['Sheet1', 'Summary']
func formatSheetList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// newToolResultJSON creates a tool result with compact JSON content
func newToolResultJSON(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
