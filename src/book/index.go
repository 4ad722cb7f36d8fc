package book

import (
	"iter"
	"slices"
)

// ChapterIndex is an ordered map of chapters keyed by ChapterNumber.
type ChapterIndex struct {
	keys     []ChapterNumber
	chapters map[ChapterNumber]*Chapter
}

// NewChapterIndex returns an empty index.
func NewChapterIndex() *ChapterIndex {
	return &ChapterIndex{chapters: make(map[ChapterNumber]*Chapter)}
}

// Put inserts or replaces a chapter. It reports whether a chapter with the
// same number was already present.
func (ix *ChapterIndex) Put(c *Chapter) bool {
	if _, ok := ix.chapters[c.Number]; ok {
		ix.chapters[c.Number] = c
		return true
	}
	pos, _ := slices.BinarySearchFunc(ix.keys, c.Number, Compare)
	ix.keys = slices.Insert(ix.keys, pos, c.Number)
	ix.chapters[c.Number] = c
	return false
}

// Get returns the chapter with number n.
func (ix *ChapterIndex) Get(n ChapterNumber) (*Chapter, bool) {
	c, ok := ix.chapters[n]
	return c, ok
}

// Len returns the number of chapters.
func (ix *ChapterIndex) Len() int {
	return len(ix.keys)
}

// Numbers returns the chapter numbers in book order.
func (ix *ChapterIndex) Numbers() []ChapterNumber {
	return slices.Clone(ix.keys)
}

// All iterates the chapters in book order.
func (ix *ChapterIndex) All() iter.Seq2[ChapterNumber, *Chapter] {
	return func(yield func(ChapterNumber, *Chapter) bool) {
		for _, k := range ix.keys {
			if !yield(k, ix.chapters[k]) {
				return
			}
		}
	}
}
