package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/progress"
)

// ConversationStore is the persistent state of one student learning one
// book. It serializes its own writes; separate stores for the same
// conversation rely on sqlite transactions.
type ConversationStore struct {
	db        *DB
	studentID string
	bookID    string

	mu sync.Mutex
}

// OpenConversation returns the store of the conversation between studentID
// and bookID, creating its tutor state on first use.
func OpenConversation(ctx context.Context, db *DB, studentID, bookID string) (*ConversationStore, error) {
	student, err := GetStudentByID(ctx, db.DB(), studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	record, err := GetBookByID(ctx, db.DB(), bookID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", book.ErrBookNotFound, bookID)
	}
	if err := EnsureTutorState(ctx, db.DB(), studentID, bookID); err != nil {
		return nil, err
	}
	return &ConversationStore{db: db, studentID: studentID, bookID: bookID}, nil
}

func (s *ConversationStore) StudentID() string { return s.studentID }

func (s *ConversationStore) BookID() string { return s.bookID }

// AppendMessage persists msg at the end of the history.
func (s *ConversationStore) AppendMessage(ctx context.Context, msg *aisdk.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return AppendHistoryMessage(ctx, s.db.DB(), &HistoryMessage{
		StudentID: s.studentID,
		BookID:    s.bookID,
		Role:      msg.Role,
		Content:   string(raw),
	})
}

// Messages returns the whole history, oldest first.
func (s *ConversationStore) Messages(ctx context.Context) ([]*aisdk.Message, error) {
	return LoadMessages(ctx, s.db.DB(), s.studentID, s.bookID)
}

func (s *ConversationStore) SetCurrentChapter(ctx context.Context, n book.ChapterNumber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SetCurrentChapter(ctx, s.db.DB(), s.studentID, s.bookID, n)
}

func (s *ConversationStore) CurrentChapter(ctx context.Context) (book.ChapterNumber, error) {
	return GetCurrentChapter(ctx, s.db.DB(), s.studentID, s.bookID)
}

func (s *ConversationStore) UpdateChapterProgress(ctx context.Context, update *progress.ChapterProgress) (*progress.ChapterProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var merged *progress.ChapterProgress
	err := withTx(ctx, s.db.DB(), func(tx *sql.Tx) error {
		var err error
		merged, err = UpdateChapterProgress(ctx, tx, s.studentID, s.bookID, update)
		return err
	})
	return merged, err
}

func (s *ConversationStore) AddMemory(ctx context.Context, memory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withTx(ctx, s.db.DB(), func(tx *sql.Tx) error {
		_, err := AddMemory(ctx, tx, s.studentID, s.bookID, memory)
		return err
	})
}

func (s *ConversationStore) Memories(ctx context.Context) (progress.Memories, error) {
	return GetMemories(ctx, s.db.DB(), s.studentID, s.bookID)
}

func (s *ConversationStore) GetBookProgress(ctx context.Context) (*progress.BookProgress, error) {
	return GetBookProgress(ctx, s.db.DB(), s.studentID, s.bookID)
}

// Delete removes the conversation. The store must not be used afterwards.
func (s *ConversationStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DeleteConversation(ctx, s.db.DB(), s.studentID, s.bookID)
}
