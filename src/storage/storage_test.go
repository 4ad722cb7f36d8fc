package storage

import (
	"context"
	"testing"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedConversation(t *testing.T, db *DB) (*Student, *BookRecord) {
	t.Helper()
	ctx := context.Background()
	student := &Student{Name: "Ada"}
	require.NoError(t, CreateStudent(ctx, db.DB(), student))
	record := &BookRecord{Title: "Rust By Example", Path: "rust-by-example", Authors: JSONStringArray{"Steve"}}
	require.NoError(t, CreateBook(ctx, db.DB(), record))
	return student, record
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t)
	v, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), v)

	// applying twice is a no-op
	require.NoError(t, db.runMigrations(context.Background()))
}

func TestStudentsAndBooks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	student, record := seedConversation(t, db)

	assert.NotEmpty(t, student.ID)
	got, err := GetStudentByID(ctx, db.DB(), student.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)

	missing, err := GetStudentByID(ctx, db.DB(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, CreateStudent(ctx, db.DB(), &Student{Name: "  "}))

	b, err := GetBookByID(ctx, db.DB(), record.ID)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, JSONStringArray{"Steve"}, b.Authors)

	assert.Error(t, CreateBook(ctx, db.DB(), &BookRecord{Title: "dup", Path: "rust-by-example"}))

	books, err := ListBooks(ctx, db.DB())
	require.NoError(t, err)
	assert.Len(t, books, 1)

	students, err := ListStudents(ctx, db.DB())
	require.NoError(t, err)
	assert.Len(t, students, 1)

	path, err := NewCatalog(db.DB()).BookPath(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "rust-by-example", path)

	_, err = NewCatalog(db.DB()).BookPath(ctx, "nope")
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestOpenConversationRequiresParticipants(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	student, record := seedConversation(t, db)

	_, err := OpenConversation(ctx, db, "nope", record.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = OpenConversation(ctx, db, student.ID, "nope")
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestConversationHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	student, record := seedConversation(t, db)

	store, err := OpenConversation(ctx, db, student.ID, record.ID)
	require.NoError(t, err)

	assistant := &aisdk.Message{
		Role: aisdk.RoleAssistant,
		ToolCalls: []aisdk.ToolCall{{
			ID:       "c1",
			Type:     "function",
			Function: aisdk.FunctionCall{Name: "GetBookProgress", Arguments: "{}"},
		}},
	}
	input := []*aisdk.Message{
		aisdk.NewUserMessage("hello"),
		assistant,
		aisdk.NewToolMessage("c1", "GetBookProgress", `{"memories":[]}`),
	}
	for _, msg := range input {
		require.NoError(t, store.AppendMessage(ctx, msg))
	}

	// a second store sees the same history
	again, err := OpenConversation(ctx, db, student.ID, record.ID)
	require.NoError(t, err)
	messages, err := again.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "hello", messages[0].Text())
	assert.Equal(t, aisdk.RoleAssistant, messages[1].Role)
	require.Len(t, messages[1].ToolCalls, 1)
	assert.Equal(t, "c1", messages[1].ToolCalls[0].ID)
	assert.Equal(t, "c1", messages[2].ToolCallID)
}

func TestConversationProgress(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	student, record := seedConversation(t, db)
	store, err := OpenConversation(ctx, db, student.ID, record.ID)
	require.NoError(t, err)

	current, err := store.CurrentChapter(ctx)
	require.NoError(t, err)
	assert.Equal(t, book.ChapterNumber(""), current)

	require.NoError(t, store.SetCurrentChapter(ctx, "2.1."))
	current, err = store.CurrentChapter(ctx)
	require.NoError(t, err)
	assert.Equal(t, book.ChapterNumber("2.1."), current)

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = store.UpdateChapterProgress(ctx, &progress.ChapterProgress{
		ChapterNumber: "2.1.",
		Status:        progress.InProgress,
		Objectives: []progress.ChapterObjective{
			{Description: "ownership", Progress: "started", UpdateTime: t0},
		},
		UpdateTime: t0,
	})
	require.NoError(t, err)

	merged, err := store.UpdateChapterProgress(ctx, &progress.ChapterProgress{
		ChapterNumber: "2.1.",
		Status:        progress.InProgress,
		Objectives: []progress.ChapterObjective{
			{Description: "borrowing", Progress: "intro", UpdateTime: t0.Add(time.Hour)},
		},
		UpdateTime: t0.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, merged.Objectives, 2)

	_, err = store.UpdateChapterProgress(ctx, &progress.ChapterProgress{ChapterNumber: "1.", Status: progress.Completed, UpdateTime: t0})
	require.NoError(t, err)

	require.NoError(t, store.AddMemory(ctx, "likes puzzles"))
	require.NoError(t, store.AddMemory(ctx, "likes puzzles"))
	require.NoError(t, store.AddMemory(ctx, "asks for examples"))

	bp, err := store.GetBookProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, book.ChapterNumber("2.1."), bp.CurrentLearningChapter)
	assert.Equal(t, progress.Memories{"asks for examples", "likes puzzles"}, bp.Memories)
	require.Len(t, bp.ChapterProgress, 2)
	assert.Equal(t, book.ChapterNumber("1."), bp.ChapterProgress[0].ChapterNumber)
	assert.Equal(t, progress.Completed, bp.ChapterProgress[0].Status)

	cp, ok := bp.Chapter("2.1.")
	require.True(t, ok)
	_, ok = cp.Objective("ownership")
	assert.True(t, ok)
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	student, record := seedConversation(t, db)
	store, err := OpenConversation(ctx, db, student.ID, record.ID)
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, aisdk.NewUserMessage("hi")))
	require.NoError(t, store.AddMemory(ctx, "x"))
	_, err = store.UpdateChapterProgress(ctx, &progress.ChapterProgress{ChapterNumber: "1.", Status: progress.InProgress})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx))

	state, err := GetTutorState(ctx, db.DB(), student.ID, record.ID)
	require.NoError(t, err)
	assert.Nil(t, state)

	messages, err := GetHistoryMessages(ctx, db.DB(), student.ID, record.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	bp, err := GetBookProgress(ctx, db.DB(), student.ID, record.ID)
	require.NoError(t, err)
	assert.Empty(t, bp.ChapterProgress)
}

func TestAddMemoryAfterDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	student, record := seedConversation(t, db)
	store, err := OpenConversation(ctx, db, student.ID, record.ID)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx))

	err = store.AddMemory(ctx, "likes tea")
	require.ErrorIs(t, err, ErrNotFound)

	added, err := AddMemory(ctx, db.DB(), student.ID, record.ID, "likes tea")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, added)
}

func TestJSONStringArray(t *testing.T) {
	var a JSONStringArray
	require.NoError(t, a.Scan(`["x","y"]`))
	assert.Equal(t, JSONStringArray{"x", "y"}, a)
	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)
	assert.Error(t, a.Scan(42))

	v, err := JSONStringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
