package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elee1766/booktutor/src/book"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const bookColumns = `id, title, path, authors, description, created_at`

// CreateBook registers a book directory.
func CreateBook(ctx context.Context, db Execer, record *BookRecord) error {
	if record.Path == "" {
		return fmt.Errorf("book path cannot be empty")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO books (` + bookColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		record.ID, record.Title, record.Path, record.Authors, record.Description, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetBookByID returns the book or nil when it does not exist.
func GetBookByID(ctx context.Context, db sqlscan.Querier, id string) (*BookRecord, error) {
	var record BookRecord
	err := sqlscan.Get(ctx, db, &record, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &record, nil
}

// GetBookByPath returns the book registered for path or nil.
func GetBookByPath(ctx context.Context, db sqlscan.Querier, path string) (*BookRecord, error) {
	var record BookRecord
	err := sqlscan.Get(ctx, db, &record, `SELECT `+bookColumns+` FROM books WHERE path = ?`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &record, nil
}

// ListBooks returns all books ordered by title.
func ListBooks(ctx context.Context, db sqlscan.Querier) ([]*BookRecord, error) {
	var records []*BookRecord
	if err := sqlscan.Select(ctx, db, &records, `SELECT `+bookColumns+` FROM books ORDER BY title, id`); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return records, nil
}

// Catalog resolves book ids against the books table.
type Catalog struct {
	db sqlscan.Querier
}

func NewCatalog(db sqlscan.Querier) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) BookPath(ctx context.Context, bookID string) (string, error) {
	record, err := GetBookByID(ctx, c.db, bookID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", fmt.Errorf("%w: %s", book.ErrBookNotFound, bookID)
	}
	return record.Path, nil
}
