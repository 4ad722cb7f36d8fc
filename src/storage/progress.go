package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/progress"
	"github.com/georgysavva/scany/v2/sqlscan"
)

const chapterProgressColumns = `student_id, book_id, chapter_number, status, objectives, update_time`

func (r *ChapterProgressRow) toProgress() (*progress.ChapterProgress, error) {
	n, err := book.ParseChapterNumber(r.ChapterNumber)
	if err != nil {
		return nil, err
	}
	cp := &progress.ChapterProgress{
		ChapterNumber: n,
		Status:        progress.StatusFromInt(int(r.Status)),
		UpdateTime:    r.UpdateTime,
	}
	if r.Objectives != "" {
		if err := json.Unmarshal([]byte(r.Objectives), &cp.Objectives); err != nil {
			return nil, fmt.Errorf("failed to decode objectives of chapter %s: %w", r.ChapterNumber, err)
		}
	}
	cp.Normalize()
	return cp, nil
}

// GetChapterProgress returns the progress of one chapter or nil.
func GetChapterProgress(ctx context.Context, db sqlscan.Querier, studentID, bookID string, n book.ChapterNumber) (*progress.ChapterProgress, error) {
	var row ChapterProgressRow
	query := `SELECT ` + chapterProgressColumns + ` FROM chapter_progress
		WHERE student_id = ? AND book_id = ? AND chapter_number = ?`
	if err := sqlscan.Get(ctx, db, &row, query, studentID, bookID, n.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chapter progress: %w", err)
	}
	return row.toProgress()
}

// UpdateChapterProgress merges update into the stored progress of its
// chapter and returns the merged result. db should be a transaction.
func UpdateChapterProgress(ctx context.Context, db ExecQuerier, studentID, bookID string, update *progress.ChapterProgress) (*progress.ChapterProgress, error) {
	current, err := GetChapterProgress(ctx, db, studentID, bookID, update.ChapterNumber)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &progress.ChapterProgress{ChapterNumber: update.ChapterNumber}
	}
	if update.UpdateTime.IsZero() {
		update.UpdateTime = time.Now().UTC()
	}
	current.Merge(update)

	objectives, err := json.Marshal(current.Objectives)
	if err != nil {
		return nil, fmt.Errorf("failed to encode objectives: %w", err)
	}
	if current.Objectives == nil {
		objectives = []byte("[]")
	}

	query := `INSERT OR REPLACE INTO chapter_progress (` + chapterProgressColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		studentID, bookID, current.ChapterNumber.String(), int(current.Status), string(objectives), current.UpdateTime)
	if err != nil {
		return nil, fmt.Errorf("failed to update chapter progress: %w", err)
	}
	return current, nil
}

// GetBookProgress assembles everything recorded for the conversation.
func GetBookProgress(ctx context.Context, db sqlscan.Querier, studentID, bookID string) (*progress.BookProgress, error) {
	bp := &progress.BookProgress{}

	state, err := GetTutorState(ctx, db, studentID, bookID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		bp.Memories = state.Memories
		bp.UpdateTime = state.UpdatedAt
		if state.CurrentChapter != "" {
			n, err := book.ParseChapterNumber(state.CurrentChapter)
			if err != nil {
				return nil, err
			}
			bp.CurrentLearningChapter = n
		}
	}

	var rows []*ChapterProgressRow
	query := `SELECT ` + chapterProgressColumns + ` FROM chapter_progress WHERE student_id = ? AND book_id = ?`
	if err := sqlscan.Select(ctx, db, &rows, query, studentID, bookID); err != nil {
		return nil, fmt.Errorf("failed to list chapter progress: %w", err)
	}
	for _, row := range rows {
		cp, err := row.toProgress()
		if err != nil {
			return nil, err
		}
		bp.ChapterProgress = append(bp.ChapterProgress, cp)
		if cp.UpdateTime.After(bp.UpdateTime) {
			bp.UpdateTime = cp.UpdateTime
		}
	}
	bp.Sort()
	return bp, nil
}
