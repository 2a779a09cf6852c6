package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxCells caps the number of cells a single read or write may touch
const DefaultMaxCells = 250000

// Options configures an App
type Options struct {
	// MaxCells limits the size of a single range read or write (DefaultMaxCells when zero)
	MaxCells int
	// AutoSave writes the workbook back to disk after every cell change
	AutoSave bool
	// OnOpen is called with the absolute path of every workbook opened or created
	OnOpen func(path string)
}

// App is the in-process spreadsheet application: the set of open workbooks
// plus the active one that sheet operations act on.
type App struct {
	mu     sync.Mutex
	books  []*Book
	active *Book
	opts   Options
	logger *logrus.Logger
}

// New creates an application with no open workbooks
func New(logger *logrus.Logger, opts Options) *App {
	if opts.MaxCells <= 0 {
		opts.MaxCells = DefaultMaxCells
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &App{opts: opts, logger: logger}
}

// MaxCells returns the per-operation cell limit
func (a *App) MaxCells() int {
	return a.opts.MaxCells
}

// Open opens an existing workbook and makes it active.
// Opening a workbook that is already open re-activates it without reloading.
func (a *App) Open(path string) (*Book, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &WorkbookError{Operation: "open", Path: path, Cause: err}
	}
	if err := checkExtension(abs); err != nil {
		return nil, &WorkbookError{Operation: "open", Path: abs, Cause: err}
	}

	a.mu.Lock()
	if book := a.findLocked(abs); book != nil {
		a.active = book
		a.mu.Unlock()
		a.logger.WithField("workbook", book.Name).Debug("Workbook already open, activated")
		a.notifyOpen(abs)
		return book, nil
	}
	a.mu.Unlock()

	if _, err := os.Stat(abs); err != nil {
		return nil, &WorkbookError{Operation: "open", Path: abs, Cause: err}
	}

	f, err := excelize.OpenFile(abs)
	if err != nil {
		return nil, &WorkbookError{Operation: "open", Path: abs, Cause: fmt.Errorf("failed to open workbook: %w", err)}
	}

	book := a.newBook(abs, f)

	a.mu.Lock()
	// A concurrent Open of the same file may have won the race
	if existing := a.findLocked(abs); existing != nil {
		a.active = existing
		a.mu.Unlock()
		_ = f.Close()
		return existing, nil
	}
	a.books = append(a.books, book)
	a.active = book
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"workbook": book.Name,
		"path":     abs,
	}).Info("Opened workbook")
	a.notifyOpen(abs)
	return book, nil
}

// Create creates a new workbook file with a single default sheet, saves it and
// makes it active. Parent directories are created as needed.
func (a *App) Create(path string) (*Book, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &WorkbookError{Operation: "create", Path: path, Cause: err}
	}
	if err := checkExtension(abs); err != nil {
		return nil, &WorkbookError{Operation: "create", Path: abs, Cause: err}
	}

	if _, err := os.Stat(abs); err == nil {
		return nil, &WorkbookError{Operation: "create", Path: abs, Cause: fs.ErrExist}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		return nil, &WorkbookError{Operation: "create", Path: abs, Cause: fmt.Errorf("failed to create directory: %w", err)}
	}

	book := a.newBook(abs, excelize.NewFile())
	if err := book.Save(); err != nil {
		_ = book.close()
		return nil, err
	}

	a.mu.Lock()
	a.books = append(a.books, book)
	a.active = book
	a.mu.Unlock()

	a.logger.WithField("path", abs).Info("Created workbook")
	a.notifyOpen(abs)
	return book, nil
}

// Active returns the active workbook
func (a *App) Active() (*Book, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active == nil {
		return nil, ErrNoActiveWorkbook
	}
	return a.active, nil
}

// Activate makes the open workbook with the given file name (or path) active
func (a *App) Activate(name string) (*Book, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, book := range a.books {
		if strings.EqualFold(book.Name, name) || book.Path == name {
			a.active = book
			return book, nil
		}
	}

	names := a.namesLocked()
	cause := fmt.Errorf("workbook is not open")
	if suggestions := suggest(name, names); len(suggestions) > 0 {
		cause = fmt.Errorf("workbook is not open, did you mean: %s?", quoteAll(suggestions))
	}
	return nil, &WorkbookError{Operation: "activate", Path: name, Cause: cause}
}

// Books returns the names of the open workbooks in the order they were opened
func (a *App) Books() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.namesLocked()
}

// CloseActive closes the active workbook without saving it. The most recently
// opened remaining workbook becomes active.
func (a *App) CloseActive() (string, error) {
	a.mu.Lock()
	book := a.active
	if book == nil {
		a.mu.Unlock()
		return "", ErrNoActiveWorkbook
	}

	a.books = slices.DeleteFunc(a.books, func(b *Book) bool { return b == book })
	a.active = nil
	if len(a.books) > 0 {
		a.active = a.books[len(a.books)-1]
	}
	a.mu.Unlock()

	if book.Dirty() {
		a.logger.WithField("workbook", book.Name).Warn("Closing workbook with unsaved changes")
	}
	if err := book.close(); err != nil {
		return book.Name, &WorkbookError{Operation: "close", Path: book.Path, Cause: err}
	}

	a.logger.WithField("workbook", book.Name).Info("Closed workbook")
	return book.Name, nil
}

// SaveActive writes the active workbook back to its file
func (a *App) SaveActive() (string, error) {
	book, err := a.Active()
	if err != nil {
		return "", err
	}
	if err := book.Save(); err != nil {
		return book.Name, err
	}
	return book.Name, nil
}

// Close closes every open workbook, discarding unsaved changes
func (a *App) Close() error {
	a.mu.Lock()
	books := a.books
	a.books = nil
	a.active = nil
	a.mu.Unlock()

	var errs []error
	for _, book := range books {
		if err := book.close(); err != nil {
			errs = append(errs, &WorkbookError{Operation: "close", Path: book.Path, Cause: err})
		}
	}
	return errors.Join(errs...)
}

func (a *App) newBook(path string, f *excelize.File) *Book {
	return &Book{
		Name:     filepath.Base(path),
		Path:     path,
		file:     f,
		autoSave: a.opts.AutoSave,
		maxCells: a.opts.MaxCells,
		logger:   a.logger,
	}
}

func (a *App) findLocked(path string) *Book {
	for _, book := range a.books {
		if book.Path == path {
			return book
		}
	}
	return nil
}

func (a *App) namesLocked() []string {
	names := make([]string, len(a.books))
	for i, book := range a.books {
		names[i] = book.Name
	}
	return names
}

func (a *App) notifyOpen(path string) {
	if a.opts.OnOpen != nil {
		a.opts.OnOpen(path)
	}
}

// suggest returns up to three candidates that fuzzily match name. When nothing
// matches, trailing characters are dropped so "Sheet3" still suggests "Sheet1".
func suggest(name string, candidates []string) []string {
	pattern := []rune(strings.TrimSpace(name))
	for len(pattern) > 0 {
		matches := fuzzy.Find(string(pattern), candidates)
		if len(matches) > 0 {
			out := make([]string, 0, 3)
			for _, m := range matches {
				if len(out) == 3 {
					break
				}
				out = append(out, m.Str)
			}
			return out
		}
		pattern = pattern[:len(pattern)-1]
	}
	return nil
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}

// extensions excelize can read and write
var extensions = []string{".xlsx", ".xlsm", ".xltm", ".xltx"}

func checkExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(extensions, ext) {
		return nil
	}
	return fmt.Errorf("unsupported workbook extension '%s', expected one of: %s", ext, strings.Join(extensions, ", "))
}
