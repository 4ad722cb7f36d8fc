package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/elee1766/booktutor/src/agent"
	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/executor"
	"github.com/elee1766/booktutor/src/progress"
	"github.com/elee1766/booktutor/src/storage"
)

// backend builds tutors from storage, the library and the model provider.
type backend struct {
	app *App
}

var _ executor.Backend = (*backend)(nil)

func (b *backend) NewTutor(ctx context.Context, key executor.ConversationKey) (*executor.Tutor, error) {
	a := b.app
	store, err := storage.OpenConversation(ctx, a.DB, key.StudentID, key.BookID)
	if err != nil {
		return nil, err
	}
	student, err := storage.GetStudentByID(ctx, a.DB.DB(), key.StudentID)
	if err != nil {
		return nil, err
	}

	bk, err := a.Library.GetBook(ctx, key.BookID)
	if err != nil {
		return nil, err
	}
	bookInfo, err := bk.ContextBlock()
	if err != nil {
		return nil, err
	}

	history, err := store.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	tools, err := conversationTools(a.Library, key.BookID, store)
	if err != nil {
		return nil, err
	}

	model, err := a.Model(ctx)
	if err != nil {
		return nil, err
	}

	cfg := a.Config.Agent
	return executor.NewTutor(executor.TutorConfig{
		ConversationID:   key.String(),
		Model:            model,
		Store:            store,
		History:          history,
		Instruction:      executor.Instruction(student.Name, bk.Title),
		Context:          bookInfo,
		TokenBudget:      cfg.TokenBudget,
		Tools:            tools,
		MaxParallelTools: cfg.MaxParallelTools,
		Stream:           cfg.Streaming(),
		MaxRounds:        cfg.MaxRounds,
		Logger:           a.Logger,
	})
}

// conversationTools binds the book and progress tools to one conversation.
func conversationTools(src book.Source, bookID string, store *storage.ConversationStore) ([]agent.Tool, error) {
	bookTools, err := book.Tools(src, bookID, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create book tools: %w", err)
	}
	progressTools, err := progress.Tools(store)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress tools: %w", err)
	}
	return slices.Concat(bookTools, progressTools), nil
}

func (b *backend) Messages(ctx context.Context, key executor.ConversationKey) ([]*aisdk.Message, error) {
	return storage.LoadMessages(ctx, b.app.DB.DB(), key.StudentID, key.BookID)
}

func (b *backend) DeleteConversation(ctx context.Context, key executor.ConversationKey) error {
	return storage.DeleteConversation(ctx, b.app.DB.DB(), key.StudentID, key.BookID)
}
