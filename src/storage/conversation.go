package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/progress"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const tutorStateColumns = `student_id, book_id, current_chapter, memories, created_at, updated_at`

// EnsureTutorState creates the tutor state of a conversation if it does not
// exist yet.
func EnsureTutorState(ctx context.Context, db Execer, studentID, bookID string) error {
	now := time.Now().UTC()
	query := `INSERT OR IGNORE INTO tutor_states (` + tutorStateColumns + `) VALUES (?, ?, '', '[]', ?, ?)`
	if _, err := db.ExecContext(ctx, query, studentID, bookID, now, now); err != nil {
		return fmt.Errorf("failed to create tutor state: %w", err)
	}
	return nil
}

// GetTutorState returns the tutor state or nil when the conversation was
// never started.
func GetTutorState(ctx context.Context, db sqlscan.Querier, studentID, bookID string) (*TutorState, error) {
	var state TutorState
	query := `SELECT ` + tutorStateColumns + ` FROM tutor_states WHERE student_id = ? AND book_id = ?`
	if err := sqlscan.Get(ctx, db, &state, query, studentID, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tutor state: %w", err)
	}
	return &state, nil
}

// AppendHistoryMessage appends a message to the conversation history.
func AppendHistoryMessage(ctx context.Context, db Execer, msg *HistoryMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO history_messages (id, student_id, book_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, msg.ID, msg.StudentID, msg.BookID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append history message: %w", err)
	}
	return nil
}

// GetHistoryMessages returns the conversation history in insertion order.
func GetHistoryMessages(ctx context.Context, db sqlscan.Querier, studentID, bookID string) ([]*HistoryMessage, error) {
	var messages []*HistoryMessage
	query := `SELECT seq, id, student_id, book_id, role, content, created_at
		FROM history_messages
		WHERE student_id = ? AND book_id = ?
		ORDER BY seq`
	if err := sqlscan.Select(ctx, db, &messages, query, studentID, bookID); err != nil {
		return nil, fmt.Errorf("failed to get history messages: %w", err)
	}
	return messages, nil
}

// AddMemory adds a memory to the tutor state. It reads and rewrites the
// memory set, so db should be a transaction.
func AddMemory(ctx context.Context, db ExecQuerier, studentID, bookID, memory string) (bool, error) {
	memories, err := GetMemories(ctx, db, studentID, bookID)
	if err != nil {
		return false, err
	}
	if !memories.Add(memory) {
		return false, nil
	}
	query := `UPDATE tutor_states SET memories = ?, updated_at = ? WHERE student_id = ? AND book_id = ?`
	res, err := db.ExecContext(ctx, query, memories, time.Now().UTC(), studentID, bookID)
	if err != nil {
		return false, fmt.Errorf("failed to add memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add memory: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("failed to add memory: tutor state %w", ErrNotFound)
	}
	return true, nil
}

// GetMemories returns the memories of the conversation.
func GetMemories(ctx context.Context, db sqlscan.Querier, studentID, bookID string) (progress.Memories, error) {
	state, err := GetTutorState(ctx, db, studentID, bookID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return state.Memories, nil
}

// SetCurrentChapter records the chapter the student is learning.
func SetCurrentChapter(ctx context.Context, db Execer, studentID, bookID string, n book.ChapterNumber) error {
	query := `UPDATE tutor_states SET current_chapter = ?, updated_at = ? WHERE student_id = ? AND book_id = ?`
	if _, err := db.ExecContext(ctx, query, n.String(), time.Now().UTC(), studentID, bookID); err != nil {
		return fmt.Errorf("failed to set current chapter: %w", err)
	}
	return nil
}

// GetCurrentChapter returns the recorded chapter or "" when none is set.
func GetCurrentChapter(ctx context.Context, db sqlscan.Querier, studentID, bookID string) (book.ChapterNumber, error) {
	state, err := GetTutorState(ctx, db, studentID, bookID)
	if err != nil {
		return "", err
	}
	if state == nil || state.CurrentChapter == "" {
		return "", nil
	}
	return book.ParseChapterNumber(state.CurrentChapter)
}

// DeleteConversation removes the tutor state of a conversation together with
// its history and progress.
func DeleteConversation(ctx context.Context, db Execer, studentID, bookID string) error {
	// history and progress cascade from tutor_states
	query := `DELETE FROM tutor_states WHERE student_id = ? AND book_id = ?`
	if _, err := db.ExecContext(ctx, query, studentID, bookID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// LoadMessages decodes the history of a conversation, oldest first. A
// conversation without history yields an empty slice.
func LoadMessages(ctx context.Context, db sqlscan.Querier, studentID, bookID string) ([]*aisdk.Message, error) {
	rows, err := GetHistoryMessages(ctx, db, studentID, bookID)
	if err != nil {
		return nil, err
	}
	messages := make([]*aisdk.Message, 0, len(rows))
	for _, row := range rows {
		var msg aisdk.Message
		if err := json.Unmarshal([]byte(row.Content), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", row.ID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}
