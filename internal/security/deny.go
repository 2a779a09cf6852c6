// Package security decides which files the workbook tools may touch.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultDeniedPaths keeps credentials and system files out of reach
var DefaultDeniedPaths = []string{
	"~/.ssh/**",
	"~/.aws/**",
	"~/.gnupg/**",
	"~/.kube/**",
	"~/.config/gcloud/**",
	"/etc/**",
	"/proc/**",
	"/sys/**",
}

// AccessDeniedError is returned for a path matching a deny pattern
type AccessDeniedError struct {
	Path    string
	Pattern string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: '%s' matches denied path pattern '%s'", e.Path, e.Pattern)
}

// DenyList matches file paths against glob patterns. '**' matches any number
// of directories and a leading '~/' is the home directory. A pattern without
// glob characters also denies everything below it.
type DenyList struct {
	mu       sync.RWMutex
	patterns []string
	compiled []string
}

// NewDenyList compiles patterns, rejecting malformed ones
func NewDenyList(patterns []string) (*DenyList, error) {
	d := &DenyList{}
	if err := d.Update(patterns); err != nil {
		return nil, err
	}
	return d, nil
}

// Update replaces the deny patterns
func (d *DenyList) Update(patterns []string) error {
	compiled := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		expanded := filepath.ToSlash(filepath.Clean(expandHome(pattern)))
		if !doublestar.ValidatePattern(expanded) {
			return fmt.Errorf("invalid denied path pattern '%s'", pattern)
		}
		compiled = append(compiled, expanded)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.patterns = append([]string(nil), patterns...)
	d.compiled = compiled
	return nil
}

// Patterns returns the configured patterns
func (d *DenyList) Patterns() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.patterns...)
}

// Check returns an AccessDeniedError when path matches a deny pattern.
// Symlinks are resolved so a link cannot be used to reach a denied file.
func (d *DenyList) Check(path string) error {
	candidates := []string{absPath(path)}
	if resolved := resolveExisting(candidates[0]); resolved != candidates[0] {
		candidates = append(candidates, resolved)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, candidate := range candidates {
		slashed := filepath.ToSlash(candidate)
		for i, pattern := range d.compiled {
			if matches(pattern, slashed) {
				return &AccessDeniedError{Path: path, Pattern: d.patterns[i]}
			}
		}
	}
	return nil
}

// IsBlocked reports whether path matches a deny pattern
func (d *DenyList) IsBlocked(path string) bool {
	return d.Check(path) != nil
}

func matches(pattern, path string) bool {
	if ok, _ := doublestar.Match(pattern, path); ok {
		return true
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return path == pattern || strings.HasPrefix(path, strings.TrimSuffix(pattern, "/")+"/")
	}
	return false
}

// resolveExisting resolves symlinks in the deepest existing ancestor of path
// and re-joins the part that does not exist yet
func resolveExisting(path string) string {
	existing, missing := path, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, missing)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return path
		}
		missing = filepath.Join(filepath.Base(existing), missing)
		existing = parent
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// expandHome expands ~ to the user's home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
