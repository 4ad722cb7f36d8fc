package book

import "errors"

var (
	ErrInvalidChapterNumber = errors.New("invalid chapter number")
	ErrChapterNotFound      = errors.New("chapter not found")
	ErrDuplicateChapter     = errors.New("chapter number is not unique")
	ErrBookNotFound         = errors.New("book not found")
	ErrNoManifest           = errors.New("book manifest not found")
)
