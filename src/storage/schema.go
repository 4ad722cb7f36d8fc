package storage

import (
	"time"

	"github.com/elee1766/booktutor/src/progress"
)

type Student struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BookRecord registers a book directory, relative to the library root.
type BookRecord struct {
	ID          string          `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Path        string          `json:"path" db:"path"`
	Authors     JSONStringArray `json:"authors" db:"authors"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// TutorState is the per student and book state of the tutor.
type TutorState struct {
	StudentID      string            `json:"student_id" db:"student_id"`
	BookID         string            `json:"book_id" db:"book_id"`
	CurrentChapter string            `json:"current_chapter" db:"current_chapter"`
	Memories       progress.Memories `json:"memories" db:"memories"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// HistoryMessage is one persisted conversation message. Content holds the
// JSON encoded message.
type HistoryMessage struct {
	Seq       int64     `json:"seq" db:"seq"`
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	BookID    string    `json:"book_id" db:"book_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ChapterProgressRow struct {
	StudentID     string    `db:"student_id"`
	BookID        string    `db:"book_id"`
	ChapterNumber string    `db:"chapter_number"`
	Status        int64     `db:"status"`
	Objectives    string    `db:"objectives"`
	UpdateTime    time.Time `db:"update_time"`
}
