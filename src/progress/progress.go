// Package progress models a student's progress through a book and the tools
// the tutor uses to record it.
package progress

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/elee1766/booktutor/src/book"
)

// ChapterObjective is a learning objective within a chapter. Objectives are
// identified by their description.
type ChapterObjective struct {
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Progress    string    `json:"progress,omitempty"`
	NextStep    string    `json:"next_step,omitempty"`
	UpdateTime  time.Time `json:"update_time"`
}

// ChapterProgress tracks a student's progress through one chapter.
type ChapterProgress struct {
	ChapterNumber book.ChapterNumber `json:"chapter_number"`
	Status        ChapterStatus      `json:"status"`
	Objectives    []ChapterObjective `json:"objectives,omitempty"`
	UpdateTime    time.Time          `json:"update_time"`
}

// Objective returns the objective with the given description.
func (p *ChapterProgress) Objective(description string) (*ChapterObjective, bool) {
	i, ok := slices.BinarySearchFunc(p.Objectives, description, func(o ChapterObjective, d string) int {
		return strings.Compare(o.Description, d)
	})
	if !ok {
		return nil, false
	}
	return &p.Objectives[i], true
}

// Upsert inserts the objective or replaces the one with the same
// description. A completed objective loses its progress and next step.
func (p *ChapterProgress) Upsert(o ChapterObjective) {
	if o.Completed {
		o.Progress = ""
		o.NextStep = ""
	}
	i, ok := slices.BinarySearchFunc(p.Objectives, o.Description, func(e ChapterObjective, d string) int {
		return strings.Compare(e.Description, d)
	})
	if ok {
		p.Objectives[i] = o
		return
	}
	p.Objectives = slices.Insert(p.Objectives, i, o)
}

// Merge applies an update: the status is overwritten, every objective of
// the update is upserted, objectives the update does not mention are kept
// and the update time is taken from the update.
func (p *ChapterProgress) Merge(update *ChapterProgress) {
	p.Status = update.Status
	for _, o := range update.Objectives {
		p.Upsert(o)
	}
	p.UpdateTime = update.UpdateTime
}

// Normalize sorts the objectives by description and collapses duplicates,
// keeping the last one.
func (p *ChapterProgress) Normalize() {
	objectives := p.Objectives
	p.Objectives = nil
	for _, o := range objectives {
		p.Upsert(o)
	}
}

// BookProgress is everything recorded about a student in one book.
type BookProgress struct {
	CurrentLearningChapter book.ChapterNumber `json:"current_learning_chapter"`
	ChapterProgress        []*ChapterProgress `json:"chapter_progress,omitempty"`
	Memories               Memories           `json:"memories,omitempty"`
	UpdateTime             time.Time          `json:"update_time"`
}

// Chapter returns the progress recorded for chapter n.
func (b *BookProgress) Chapter(n book.ChapterNumber) (*ChapterProgress, bool) {
	for _, cp := range b.ChapterProgress {
		if cp.ChapterNumber == n {
			return cp, true
		}
	}
	return nil, false
}

// Sort orders the chapter progress in book order.
func (b *BookProgress) Sort() {
	slices.SortFunc(b.ChapterProgress, func(x, y *ChapterProgress) int {
		return book.Compare(x.ChapterNumber, y.ChapterNumber)
	})
}

// Markdown renders the progress as a fenced JSON block.
func (b *BookProgress) Markdown() (string, error) {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode book progress: %w", err)
	}
	return "## Book Progress\n```json\n" + string(raw) + "\n```", nil
}
