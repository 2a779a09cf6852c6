// Package downloads finds workbooks in the user's Downloads directory
package downloads

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/sammcj/mcp-excel/internal/cache"
	"github.com/sirupsen/logrus"
)

// Pattern matches workbooks at any depth below the Downloads directory
const Pattern = "**/*.xlsx"

const scanKey = "scan"

// ErrNoFiles is returned by MostRecent when the directory holds no workbooks
var ErrNoFiles = errors.New("no Excel files found in Downloads folder")

// File is a workbook found in the Downloads directory
type File struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Finder scans a directory for workbooks, newest first. Scans are cached for
// the TTL and dropped early when the watcher sees the directory change.
type Finder struct {
	dir    string
	limit  int
	cache  *cache.Cache[[]File]
	logger *logrus.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFinder creates a finder for dir returning at most limit files
func NewFinder(dir string, limit int, ttl time.Duration, logger *logrus.Logger) *Finder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Finder{
		dir:    dir,
		limit:  limit,
		cache:  cache.New[[]File](ttl),
		logger: logger,
	}
}

// Dir returns the scanned directory
func (f *Finder) Dir() string {
	return f.dir
}

// Find returns the most recently modified workbooks, newest first
func (f *Finder) Find(ctx context.Context) ([]File, error) {
	files, err := f.cache.GetOrLoad(scanKey, func() ([]File, error) {
		return f.scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(files), nil
}

// MostRecent returns the newest workbook or ErrNoFiles
func (f *Finder) MostRecent(ctx context.Context) (File, error) {
	files, err := f.Find(ctx)
	if err != nil {
		return File{}, err
	}
	if len(files) == 0 {
		return File{}, ErrNoFiles
	}
	return files[0], nil
}

// Invalidate drops the cached scan
func (f *Finder) Invalidate() {
	f.cache.Delete(scanKey)
}

func (f *Finder) scan(ctx context.Context) ([]File, error) {
	fsys := os.DirFS(f.dir)
	matches, err := doublestar.Glob(fsys, Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", f.dir, err)
	}

	files := make([]File, 0, len(matches))
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := filepath.Base(match)
		// Skip the owner files the spreadsheet application writes next to open workbooks
		if strings.HasPrefix(name, "~$") {
			continue
		}

		info, err := fs.Stat(fsys, match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, File{
			Path:     filepath.Join(f.dir, filepath.FromSlash(match)),
			Name:     name,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	slices.SortStableFunc(files, func(a, b File) int {
		if c := b.Modified.Compare(a.Modified); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	if f.limit > 0 && len(files) > f.limit {
		files = files[:f.limit]
	}

	f.logger.WithFields(logrus.Fields{
		"dir":   f.dir,
		"found": len(matches),
	}).Debug("Scanned for workbooks")
	return files, nil
}

// Watch starts invalidating the cached scan when workbooks in the top level
// of the directory change. Nested changes are picked up when the TTL expires.
func (f *Finder) Watch() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Use a channel to handle watcher.Add with timeout
	done := make(chan error, 1)
	go func() {
		done <- watcher.Add(f.dir)
	}()

	select {
	case err := <-done:
		if err != nil {
			if closeErr := watcher.Close(); closeErr != nil {
				f.logger.WithError(closeErr).Warn("Failed to close watcher after add error")
			}
			return fmt.Errorf("failed to watch %s: %w", f.dir, err)
		}
	case <-time.After(5 * time.Second):
		if closeErr := watcher.Close(); closeErr != nil {
			f.logger.WithError(closeErr).Warn("Failed to close watcher after timeout")
		}
		return fmt.Errorf("timeout adding %s to watcher", f.dir)
	}

	f.watcher = watcher
	go f.watch(watcher)
	return nil
}

func (f *Finder) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if strings.EqualFold(filepath.Ext(event.Name), ".xlsx") || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.logger.WithField("file", event.Name).Debug("Downloads changed, dropping cached scan")
				f.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.WithError(err).Warn("Downloads watcher error")
		}
	}
}

// Close stops the watcher
func (f *Finder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.watcher = nil
	return err
}
