package book

import (
	"context"
	"fmt"

	"github.com/elee1766/booktutor/src/agent"
)

const (
	GetChapterContentToolName = "GetChapterContent"
	BookJumpToolName          = "BookJump"
)

// Source returns loaded books. *Library implements it.
type Source interface {
	GetBook(ctx context.Context, id string) (*Book, error)
}

// Watermark records the chapter a student is currently studying.
type Watermark interface {
	SetCurrentChapter(ctx context.Context, number ChapterNumber) error
}

// ChapterQuery is the input of GetChapterContent.
type ChapterQuery struct {
	ChapterNumber ChapterNumber `json:"chapter_number" required:"true" description:"The chapter to read, e.g. \"1.2.\""`
}

// BookLocation specifies a location in the book by chapter number and
// optional section title.
type BookLocation struct {
	ChapterNumber ChapterNumber `json:"chapter_number" required:"true" description:"The chapter number to navigate to"`
	SectorTitle   string        `json:"sector_title,omitempty" description:"Optional section title within the chapter"`
}

// NewGetChapterContentTool returns the tool that reads one chapter of bookID.
func NewGetChapterContentTool(src Source, bookID string) (agent.Tool, error) {
	return agent.NewGenericTool(GetChapterContentToolName,
		"Query the content of a chapter from the book. Before starting to teach a new chapter, use this tool to get the content of this chapter",
		func(ctx context.Context, in ChapterQuery) (*Chapter, error) {
			b, err := src.GetBook(ctx, bookID)
			if err != nil {
				return nil, err
			}
			return b.Chapter(in.ChapterNumber)
		})
}

// NewBookJumpTool returns the tool that points the student at a chapter and
// moves the watermark there.
func NewBookJumpTool(src Source, bookID string, mark Watermark) (agent.Tool, error) {
	return agent.NewGenericTool(BookJumpToolName,
		"Use this tool to navigate to a specific chapter or section in the book when you need the student to read particular content. It helps direct the student's attention to the relevant material.",
		func(ctx context.Context, in BookLocation) (string, error) {
			b, err := src.GetBook(ctx, bookID)
			if err != nil {
				return "", err
			}
			ch, err := b.Chapter(in.ChapterNumber)
			if err != nil {
				return "", err
			}
			if mark != nil {
				if err := mark.SetCurrentChapter(ctx, ch.Number); err != nil {
					return "", fmt.Errorf("failed to record current chapter: %w", err)
				}
			}
			sector := ""
			if in.SectorTitle != "" {
				sector = "#" + in.SectorTitle
			}
			return fmt.Sprintf("Jumped to %s %s%s", ch.Number, ch.Name, sector), nil
		})
}

// Tools returns both book tools for bookID.
func Tools(src Source, bookID string, mark Watermark) ([]agent.Tool, error) {
	get, err := NewGetChapterContentTool(src, bookID)
	if err != nil {
		return nil, err
	}
	jump, err := NewBookJumpTool(src, bookID, mark)
	if err != nil {
		return nil, err
	}
	return []agent.Tool{get, jump}, nil
}
