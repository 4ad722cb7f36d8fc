package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by the errors of lookups that require a row.
var ErrNotFound = errors.New("not found")

var ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
