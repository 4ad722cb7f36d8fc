package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/progress"
	"github.com/elee1766/booktutor/src/storage"
)

var ErrBookExists = errors.New("book already registered")

// AddStudent registers a student.
func (a *App) AddStudent(ctx context.Context, name string) (*storage.Student, error) {
	student := &storage.Student{Name: name}
	if err := storage.CreateStudent(ctx, a.DB.DB(), student); err != nil {
		return nil, err
	}
	a.Logger.Info("added student", "id", student.ID, "name", student.Name)
	return student, nil
}

func (a *App) ListStudents(ctx context.Context) ([]*storage.Student, error) {
	return storage.ListStudents(ctx, a.DB.DB())
}

// AddBook loads the book in dir and registers it. A dir inside the book root
// is stored relative to it.
func (a *App) AddBook(ctx context.Context, dir string) (*storage.BookRecord, error) {
	path := dir
	if filepath.IsAbs(dir) && a.Library.Root() != "" {
		if rel, err := filepath.Rel(a.Library.Root(), dir); err == nil && filepath.IsLocal(rel) {
			path = rel
		}
	}

	existing, err := storage.GetBookByPath(ctx, a.DB.DB(), path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrBookExists, existing.ID)
	}

	bk, err := book.Load(a.Library.Fs(), a.Library.Resolve(path))
	if err != nil {
		return nil, err
	}

	record := &storage.BookRecord{
		Title:       bk.Title,
		Path:        path,
		Authors:     storage.JSONStringArray(bk.Authors),
		Description: bk.Description,
	}
	if err := storage.CreateBook(ctx, a.DB.DB(), record); err != nil {
		return nil, err
	}
	a.Logger.Info("added book", "id", record.ID, "title", record.Title, "chapters", bk.Chapters.Len())
	return record, nil
}

func (a *App) ListBooks(ctx context.Context) ([]*storage.BookRecord, error) {
	return storage.ListBooks(ctx, a.DB.DB())
}

// TableOfContents renders the chapters of a registered book.
func (a *App) TableOfContents(ctx context.Context, bookID string) (string, error) {
	bk, err := a.Library.GetBook(ctx, bookID)
	if err != nil {
		return "", err
	}
	return bk.TableOfContents(), nil
}

// Progress returns what a student achieved in a book.
func (a *App) Progress(ctx context.Context, studentID, bookID string) (*progress.BookProgress, error) {
	return storage.GetBookProgress(ctx, a.DB.DB(), studentID, bookID)
}

// Models lists the models of the configured provider.
func (a *App) Models(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	provider, err := a.Provider()
	if err != nil {
		return nil, err
	}
	return provider.GetModels(ctx)
}
