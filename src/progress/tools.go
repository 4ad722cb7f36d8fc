package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elee1766/booktutor/src/agent"
	"github.com/elee1766/booktutor/src/book"
)

const (
	ProgressUpdateToolName  = "UpdateProgress"
	AddMemoryToolName       = "AddMemory"
	GetBookProgressToolName = "GetBookProgress"
)

// Store persists the progress of one student in one book.
type Store interface {
	book.Watermark
	UpdateChapterProgress(ctx context.Context, update *ChapterProgress) (*ChapterProgress, error)
	AddMemory(ctx context.Context, memory string) error
	GetBookProgress(ctx context.Context) (*BookProgress, error)
}

// ObjectiveUpdate is one objective as reported by the model.
type ObjectiveUpdate struct {
	Description string `json:"description" required:"true" description:"The text description of the learning objective"`
	Completed   bool   `json:"completed" description:"Whether the objective has been completed"`
	Progress    string `json:"progress,omitempty" description:"The current progress of the objective, don't set if the objective is completed"`
	NextStep    string `json:"next_step,omitempty" description:"Next step to help the student understand the objective, don't set if the objective is completed"`
}

// ProgressUpdate is the input of the progress tool.
type ProgressUpdate struct {
	ChapterNumber book.ChapterNumber `json:"chapter_number" required:"true" description:"The chapter number that the student is currently learning. e.g. \"3.\", \"4.2.\""`
	Status        ChapterStatus      `json:"status" description:"The current status of the chapter"`
	Objectives    []ObjectiveUpdate  `json:"objectives,omitempty" description:"Learning objectives for this chapter and their completion status"`
}

// ChapterProgress converts the update into a ChapterProgress stamped at now.
func (u ProgressUpdate) ChapterProgress(now time.Time) *ChapterProgress {
	cp := &ChapterProgress{
		ChapterNumber: u.ChapterNumber,
		Status:        u.Status,
		UpdateTime:    now,
	}
	for _, o := range u.Objectives {
		cp.Objectives = append(cp.Objectives, ChapterObjective{
			Description: o.Description,
			Completed:   o.Completed,
			Progress:    o.Progress,
			NextStep:    o.NextStep,
			UpdateTime:  now,
		})
	}
	cp.Normalize()
	return cp
}

// MemoryInput is the input of AddMemory.
type MemoryInput struct {
	Memory string `json:"memory" required:"true" description:"A short note about the student worth remembering, e.g. interests, strengths or recurring mistakes"`
}

// MemoryResult is the output of AddMemory.
type MemoryResult struct {
	Added bool `json:"added"`
}

// NewProgressUpdateTool returns the tool that merges chapter progress. An
// update marking a chapter in progress also moves the watermark there.
func NewProgressUpdateTool(store Store, now func() time.Time) (agent.Tool, error) {
	if now == nil {
		now = time.Now
	}
	return agent.NewGenericTool(ProgressUpdateToolName,
		"Update the progress of a chapter",
		func(ctx context.Context, in ProgressUpdate) (*ChapterProgress, error) {
			merged, err := store.UpdateChapterProgress(ctx, in.ChapterProgress(now()))
			if err != nil {
				return nil, fmt.Errorf("failed to update progress: %w", err)
			}
			if in.Status == InProgress {
				if err := store.SetCurrentChapter(ctx, in.ChapterNumber); err != nil {
					return nil, fmt.Errorf("failed to record current chapter: %w", err)
				}
			}
			return merged, nil
		})
}

// NewAddMemoryTool returns the tool that stores a note about the student.
func NewAddMemoryTool(store Store) (agent.Tool, error) {
	return agent.NewGenericTool(AddMemoryToolName,
		"Add a memory to the book progress",
		func(ctx context.Context, in MemoryInput) (MemoryResult, error) {
			memory := strings.TrimSpace(in.Memory)
			if memory == "" {
				return MemoryResult{}, fmt.Errorf("memory cannot be empty")
			}
			if err := store.AddMemory(ctx, memory); err != nil {
				return MemoryResult{}, fmt.Errorf("failed to add memory: %w", err)
			}
			return MemoryResult{Added: true}, nil
		})
}

// NewGetBookProgressTool returns the tool that reads the whole book progress.
func NewGetBookProgressTool(store Store) (agent.Tool, error) {
	return agent.NewGenericTool(GetBookProgressToolName,
		"Get the progress of the book",
		func(ctx context.Context, in struct{}) (*BookProgress, error) {
			return store.GetBookProgress(ctx)
		})
}

// Tools returns all progress tools bound to store.
func Tools(store Store) ([]agent.Tool, error) {
	update, err := NewProgressUpdateTool(store, nil)
	if err != nil {
		return nil, err
	}
	memory, err := NewAddMemoryTool(store)
	if err != nil {
		return nil, err
	}
	get, err := NewGetBookProgressTool(store)
	if err != nil {
		return nil, err
	}
	return []agent.Tool{update, memory, get}, nil
}
