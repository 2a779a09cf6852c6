package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/security"
	"gopkg.in/yaml.v3"
)

// AppDirName is the per-user directory holding config, state and logs
const AppDirName = ".mcp-excel"

const (
	DefaultRecentLimit        = 20
	DefaultMaxCells           = 250000
	DefaultTableFormat        = "plain"
	DefaultScanCacheTTL       = 30 * time.Second
	DefaultAgentTimeout       = 30 * time.Second
	DefaultDownloadsDirectory = "Downloads"
)

// Config holds the server settings
type Config struct {
	// DownloadsDir is scanned by the downloads tools
	DownloadsDir string `yaml:"downloads_dir"`
	// FilesPath is the base directory relative workbook paths resolve against
	FilesPath string `yaml:"files_path"`
	// RecentLimit caps the number of files listed from Downloads and remembered as recent
	RecentLimit int `yaml:"recent_limit"`
	// MaxCells caps the size of a single range read or write
	MaxCells int `yaml:"max_cells"`
	// DefaultTableFormat is used by the table tools when tablefmt is not given
	DefaultTableFormat string `yaml:"default_table_format"`
	// ScanCacheTTL is how long a Downloads scan is reused
	ScanCacheTTL time.Duration `yaml:"scan_cache_ttl"`
	// AutoSave writes workbooks to disk after every change
	AutoSave bool `yaml:"autosave"`
	// AgentTimeout bounds each agent run of the integration harness
	AgentTimeout time.Duration `yaml:"agent_timeout"`
	// DeniedPaths are glob patterns of files the tools refuse to open or create
	DeniedPaths []string `yaml:"denied_paths"`
}

// Default returns the built-in settings
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DownloadsDir:       filepath.Join(homeDir, DefaultDownloadsDirectory),
		RecentLimit:        DefaultRecentLimit,
		MaxCells:           DefaultMaxCells,
		DefaultTableFormat: DefaultTableFormat,
		ScanCacheTTL:       DefaultScanCacheTTL,
		AgentTimeout:       DefaultAgentTimeout,
		DeniedPaths:        slices.Clone(security.DefaultDeniedPaths),
	}
}

var (
	global     *Config
	globalErr  error
	globalOnce sync.Once
)

// Get returns the process-wide configuration, loading it on first use.
// Load errors are logged by the caller of Load; Get falls back to defaults.
func Get() *Config {
	globalOnce.Do(func() {
		global, globalErr = Load(Path())
		if global == nil {
			global = Default()
		}
	})
	return global
}

// LoadError returns the error from the first Get, if any
func LoadError() error {
	Get()
	return globalErr
}

// Path returns the config file location, ~/.mcp-excel/config.yaml unless
// MCP_EXCEL_CONFIG_PATH is set
func Path() string {
	if customPath := os.Getenv("MCP_EXCEL_CONFIG_PATH"); customPath != "" {
		return customPath
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, AppDirName, "config.yaml")
}

// Load builds the configuration from defaults, then the YAML file at path
// (when it exists), then a .env file in the working directory, then EXCEL_*
// environment variables. The returned config is always usable: on error it
// holds every layer that did load.
func Load(path string) (*Config, error) {
	cfg := Default()
	var errs []error

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			errs = append(errs, fmt.Errorf("failed to read config file: %w", err))
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				errs = append(errs, fmt.Errorf("failed to parse config file %s: %w", path, err))
			}
		}
	}

	// Existing environment variables win over .env entries
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("failed to load .env: %w", err))
	}

	errs = append(errs, cfg.applyEnv()...)
	cfg.DownloadsDir = expandHome(cfg.DownloadsDir)
	cfg.FilesPath = expandHome(cfg.FilesPath)

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	return cfg, errors.Join(errs...)
}

func (c *Config) applyEnv() []error {
	var errs []error

	if v := os.Getenv("EXCEL_DOWNLOADS_DIR"); v != "" {
		c.DownloadsDir = v
	}
	if v := os.Getenv("EXCEL_FILES_PATH"); v != "" {
		c.FilesPath = v
	}
	if v := os.Getenv("EXCEL_DEFAULT_TABLE_FORMAT"); v != "" {
		c.DefaultTableFormat = strings.ToLower(v)
	}
	if v := os.Getenv("EXCEL_RECENT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RecentLimit = n
		} else {
			errs = append(errs, fmt.Errorf("invalid EXCEL_RECENT_LIMIT '%s': %w", v, err))
		}
	}
	if v := os.Getenv("EXCEL_MAX_CELLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxCells = n
		} else {
			errs = append(errs, fmt.Errorf("invalid EXCEL_MAX_CELLS '%s': %w", v, err))
		}
	}
	if v := os.Getenv("EXCEL_SCAN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ScanCacheTTL = d
		} else {
			errs = append(errs, fmt.Errorf("invalid EXCEL_SCAN_CACHE_TTL '%s': %w", v, err))
		}
	}
	if v := os.Getenv("EXCEL_AGENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AgentTimeout = d
		} else {
			errs = append(errs, fmt.Errorf("invalid EXCEL_AGENT_TIMEOUT '%s': %w", v, err))
		}
	}
	if v, ok := os.LookupEnv("EXCEL_DENIED_PATHS"); ok {
		c.DeniedPaths = nil
		for pattern := range strings.SplitSeq(v, ",") {
			if pattern = strings.TrimSpace(pattern); pattern != "" {
				c.DeniedPaths = append(c.DeniedPaths, pattern)
			}
		}
	}
	if v := os.Getenv("EXCEL_AUTOSAVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoSave = b
		} else {
			errs = append(errs, fmt.Errorf("invalid EXCEL_AUTOSAVE '%s': %w", v, err))
		}
	}
	return errs
}

// Validate reports settings that are out of range and resets them to defaults
func (c *Config) Validate() error {
	var errs []error
	if c.RecentLimit <= 0 {
		errs = append(errs, fmt.Errorf("recent_limit must be positive, got %d", c.RecentLimit))
		c.RecentLimit = DefaultRecentLimit
	}
	if c.MaxCells <= 0 {
		errs = append(errs, fmt.Errorf("max_cells must be positive, got %d", c.MaxCells))
		c.MaxCells = DefaultMaxCells
	}
	if c.ScanCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("scan_cache_ttl cannot be negative, got %s", c.ScanCacheTTL))
		c.ScanCacheTTL = DefaultScanCacheTTL
	}
	if c.AgentTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent_timeout must be positive, got %s", c.AgentTimeout))
		c.AgentTimeout = DefaultAgentTimeout
	}
	if _, err := security.NewDenyList(c.DeniedPaths); err != nil {
		errs = append(errs, err)
		c.DeniedPaths = slices.Clone(security.DefaultDeniedPaths)
	}
	if c.DefaultTableFormat == "" {
		c.DefaultTableFormat = DefaultTableFormat
	} else if !grid.IsFormat(c.DefaultTableFormat) {
		errs = append(errs, fmt.Errorf("default_table_format '%s' is not one of: %s", c.DefaultTableFormat, strings.Join(grid.Formats(), ", ")))
		c.DefaultTableFormat = DefaultTableFormat
	}
	return errors.Join(errs...)
}

// Marshal renders the config as YAML, the format of the config file
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}
	return path
}
