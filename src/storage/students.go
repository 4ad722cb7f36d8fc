package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// CreateStudent inserts a new student. ID and CreatedAt are filled in when
// empty.
func CreateStudent(ctx context.Context, db Execer, student *Student) error {
	student.Name = strings.TrimSpace(student.Name)
	if student.Name == "" {
		return fmt.Errorf("student name cannot be empty")
	}
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO students (id, name, created_at) VALUES (?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, student.ID, student.Name, student.CreatedAt); err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// GetStudentByID returns the student or nil when it does not exist.
func GetStudentByID(ctx context.Context, db sqlscan.Querier, id string) (*Student, error) {
	var student Student
	err := sqlscan.Get(ctx, db, &student, `SELECT id, name, created_at FROM students WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

// ListStudents returns all students ordered by creation time.
func ListStudents(ctx context.Context, db sqlscan.Querier) ([]*Student, error) {
	var students []*Student
	if err := sqlscan.Select(ctx, db, &students, `SELECT id, name, created_at FROM students ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}
