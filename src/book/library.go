package book

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// Catalog resolves a book id to the book directory relative to the library
// root.
type Catalog interface {
	BookPath(ctx context.Context, bookID string) (string, error)
}

// Library loads books on first use and keeps them in memory.
type Library struct {
	fs      afero.Fs
	root    string
	catalog Catalog
	logger  *slog.Logger

	mu    sync.RWMutex
	books map[string]*Book
	group singleflight.Group
}

// NewLibrary creates a library rooted at root on fsys.
func NewLibrary(fsys afero.Fs, root string, catalog Catalog, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		fs:      fsys,
		root:    root,
		catalog: catalog,
		logger:  logger.With("component", "library"),
		books:   make(map[string]*Book),
	}
}

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

// Fs returns the filesystem the library reads from.
func (l *Library) Fs() afero.Fs {
	return l.fs
}

// GetBook returns the book with the given id, loading it if needed.
// Concurrent first loads of the same book share one read.
func (l *Library) GetBook(ctx context.Context, id string) (*Book, error) {
	l.mu.RLock()
	b, ok := l.books[id]
	l.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := l.group.Do(id, func() (any, error) {
		l.mu.RLock()
		b, ok := l.books[id]
		l.mu.RUnlock()
		if ok {
			return b, nil
		}

		rel, err := l.catalog.BookPath(ctx, id)
		if err != nil {
			return nil, err
		}
		b, err = Load(l.fs, l.Resolve(rel))
		if err != nil {
			return nil, fmt.Errorf("failed to load book %s: %w", id, err)
		}
		b.ID = id

		l.mu.Lock()
		l.books[id] = b
		l.mu.Unlock()
		l.logger.Info("loaded book", "id", id, "title", b.Title, "chapters", b.Chapters.Len())
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Book), nil
}

// Resolve returns the directory of a catalog path. Relative paths are
// taken from the library root.
func (l *Library) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.root, p)
}

// Forget drops a cached book so the next GetBook reloads it.
func (l *Library) Forget(id string) {
	l.mu.Lock()
	delete(l.books, id)
	l.mu.Unlock()
}

// Scan returns the directories under the root that hold a book manifest,
// relative to the root and sorted.
func (l *Library) Scan() ([]string, error) {
	var dirs []string
	err := afero.Walk(l.fs, l.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", "path", p, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || info.Name() != ManifestFile {
			return nil
		}
		rel, err := filepath.Rel(l.root, filepath.Dir(p))
		if err != nil {
			return err
		}
		dirs = append(dirs, filepath.ToSlash(rel))
		return filepath.SkipDir
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, filepath.SkipDir) {
		return nil, fmt.Errorf("failed to scan %s: %w", l.root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}
