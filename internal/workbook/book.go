package workbook

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
)

// filePermissions restricts saved workbooks to the current user
const filePermissions = 0600

// Book is one open workbook. All access to the underlying file goes through mu.
type Book struct {
	// Name is the file name, e.g. "report.xlsx"
	Name string
	// Path is the absolute path the workbook is saved to
	Path string

	mu       sync.Mutex
	file     *excelize.File
	dirty    bool
	autoSave bool
	maxCells int
	logger   *logrus.Logger
}

// SheetNames returns the sheet names in workbook order
func (b *Book) SheetNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.GetSheetList()
}

// Sheet returns the named worksheet. Names are matched exactly first and then
// case-insensitively, the way the spreadsheet application resolves them.
func (b *Book) Sheet(name string) (*Sheet, error) {
	if name == "" {
		return nil, &ValidationError{Field: "sheet_name", Value: name, Message: "sheet name cannot be empty"}
	}

	names := b.SheetNames()
	for _, candidate := range names {
		if candidate == name {
			return &Sheet{book: b, name: candidate}, nil
		}
	}

	folded := fold(name)
	for _, candidate := range names {
		if fold(candidate) == folded {
			return &Sheet{book: b, name: candidate}, nil
		}
	}

	return nil, &SheetNotFoundError{Name: name, Suggestions: suggest(name, names)}
}

// Dirty reports whether the workbook has changes that have not been saved
func (b *Book) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// Save writes the workbook to its path while holding an advisory lock from
// LockPath, so two processes never write the same file at once.
func (b *Book) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveLocked()
}

func (b *Book) saveLocked() error {
	lockFile := LockPath(b.Path)
	if err := os.MkdirAll(filepath.Dir(lockFile), 0o700); err != nil {
		return &WorkbookError{Operation: "save", Path: b.Path, Cause: fmt.Errorf("failed to create lock directory: %w", err)}
	}
	fileLock := flock.New(lockFile)
	locked, err := fileLock.TryLock()
	if err != nil {
		return &WorkbookError{Operation: "save", Path: b.Path, Cause: fmt.Errorf("failed to acquire lock: %w", err)}
	}
	if !locked {
		return &WorkbookError{Operation: "save", Path: b.Path, Cause: errors.New("workbook is locked by another process")}
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			b.logger.WithError(err).Warn("Failed to release workbook lock")
		}
	}()

	// Cached formula results are dropped so readers recalculate
	if err := b.file.UpdateLinkedValue(); err != nil {
		b.logger.WithError(err).Debug("Failed to update linked values")
	}

	if err := b.file.SaveAs(b.Path); err != nil {
		return &WorkbookError{Operation: "save", Path: b.Path, Cause: err}
	}

	if err := os.Chmod(b.Path, filePermissions); err != nil {
		b.logger.WithError(err).WithField("path", b.Path).Warn("Failed to set file permissions to 0600")
	}

	b.dirty = false
	b.logger.WithField("workbook", b.Name).Debug("Saved workbook")
	return nil
}

// changedLocked records a modification, saving immediately in autosave mode
func (b *Book) changedLocked() error {
	b.dirty = true
	if b.autoSave {
		return b.saveLocked()
	}
	return nil
}

// LockPath returns the advisory lock file used while saving path. Locks live
// under the temp directory, keyed by a hash of the path.
func LockPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(os.TempDir(), "mcp-excel-locks", hex.EncodeToString(sum[:12])+".lock")
}

// fold case-folds a sheet name. Casers are stateful so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func (b *Book) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
