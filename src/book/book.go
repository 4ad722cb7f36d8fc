// Package book loads study books and exposes them to the tutor.
//
// A book is a directory holding a book.yaml manifest and an mdBook style
// source tree whose SUMMARY.md lists the chapters.
package book

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Book is a loaded book.
type Book struct {
	ID          string
	Title       string
	Authors     []string
	Description string
	Chapters    *ChapterIndex
}

// Chapter looks up a chapter by number.
func (b *Book) Chapter(n ChapterNumber) (*Chapter, error) {
	c, ok := b.Chapters.Get(n)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, n)
	}
	return c, nil
}

// TableOfContents renders the chapter list as markdown.
func (b *Book) TableOfContents() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", b.Title)
	for _, c := range b.Chapters.All() {
		sb.WriteString(c.TOCLine())
	}
	return sb.String()
}

type bookInfo struct {
	ID              string          `yaml:"id,omitempty"`
	Title           string          `yaml:"title"`
	Authors         []string        `yaml:"authors,omitempty"`
	Description     string          `yaml:"description,omitempty"`
	ChapterNumbers  []ChapterNumber `yaml:"chapter_numbers,omitempty"`
	TableOfContents string          `yaml:"table_of_contents"`
}

// ContextBlock renders the book metadata block placed after the tutor
// instruction.
func (b *Book) ContextBlock() (string, error) {
	info := bookInfo{
		ID:              b.ID,
		Title:           b.Title,
		Authors:         b.Authors,
		Description:     b.Description,
		ChapterNumbers:  b.Chapters.Numbers(),
		TableOfContents: b.TableOfContents(),
	}
	raw, err := yaml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to encode book info: %w", err)
	}
	return "## Book Info\n```yaml\n" + string(raw) + "```", nil
}
