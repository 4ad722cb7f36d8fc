package progress

import (
	"fmt"
	"strconv"

	"github.com/swaggest/jsonschema-go"

	"github.com/elee1766/booktutor/src/schema"
)

// ChapterStatus is the study state of one chapter.
type ChapterStatus int

const (
	NotStarted ChapterStatus = iota
	InProgress
	Completed
)

var statusNames = [...]string{"NotStarted", "InProgress", "Completed"}

func (s ChapterStatus) String() string {
	if s < NotStarted || s > Completed {
		return "NotStarted"
	}
	return statusNames[s]
}

// StatusFromInt maps a stored integer to a status. Unknown values read as
// NotStarted.
func StatusFromInt(v int64) ChapterStatus {
	switch s := ChapterStatus(v); s {
	case NotStarted, InProgress, Completed:
		return s
	}
	return NotStarted
}

// MarshalText implements encoding.TextMarshaler.
func (s ChapterStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the status name or its integer value.
func (s *ChapterStatus) UnmarshalText(text []byte) error {
	str := string(text)
	for i, name := range statusNames {
		if name == str {
			*s = ChapterStatus(i)
			return nil
		}
	}
	if n, err := strconv.Atoi(str); err == nil && n >= int(NotStarted) && n <= int(Completed) {
		*s = ChapterStatus(n)
		return nil
	}
	return fmt.Errorf("invalid chapter status %q", str)
}

// JSONSchema describes the status as a string enum.
func (ChapterStatus) JSONSchema() (jsonschema.Schema, error) {
	return schema.Enum("The current status of the chapter", statusNames[:]...), nil
}
