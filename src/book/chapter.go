package book

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/swaggest/jsonschema-go"

	"github.com/elee1766/booktutor/src/schema"
)

// ChapterNumber is a hierarchical chapter position in canonical form, every
// component followed by a dot: "1.", "3.2.", "0.1.", "-1.2.".
//
// A leading 0 marks chapters placed before the numbered part of a book and a
// leading -1 marks chapters placed after it. The empty ChapterNumber means
// "no chapter".
type ChapterNumber string

// ParseChapterNumber parses s into canonical form. The trailing dot is
// optional.
func ParseChapterNumber(s string) (ChapterNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidChapterNumber)
	}
	parts := strings.Split(strings.TrimSuffix(s, "."), ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidChapterNumber, s)
		}
		if n < 0 && (i > 0 || n != -1) {
			return "", fmt.Errorf("%w: %q", ErrInvalidChapterNumber, s)
		}
		nums[i] = n
	}
	return NewChapterNumber(nums...), nil
}

// MustParseChapterNumber is ParseChapterNumber for literals.
func MustParseChapterNumber(s string) ChapterNumber {
	n, err := ParseChapterNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NewChapterNumber builds a chapter number from its components.
func NewChapterNumber(parts ...int) ChapterNumber {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(strconv.Itoa(p))
		sb.WriteByte('.')
	}
	return ChapterNumber(sb.String())
}

// Parts returns the integer components.
func (n ChapterNumber) Parts() []int {
	if n == "" {
		return nil
	}
	fields := strings.Split(strings.TrimSuffix(string(n), "."), ".")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// Depth is the number of components.
func (n ChapterNumber) Depth() int {
	return len(n.Parts())
}

// Child returns the number of the i-th sub chapter.
func (n ChapterNumber) Child(i int) ChapterNumber {
	return n + NewChapterNumber(i)
}

// IsPrefix reports whether the chapter precedes the numbered chapters.
func (n ChapterNumber) IsPrefix() bool {
	p := n.Parts()
	return len(p) > 0 && p[0] == 0
}

// IsSuffix reports whether the chapter follows the numbered chapters.
func (n ChapterNumber) IsSuffix() bool {
	p := n.Parts()
	return len(p) > 0 && p[0] == -1
}

func (n ChapterNumber) String() string {
	return string(n)
}

// Compare orders chapter numbers the way they appear in a book.
func Compare(a, b ChapterNumber) int {
	pa, pb := a.Parts(), b.Parts()
	sa := len(pa) > 0 && pa[0] == -1
	sb := len(pb) > 0 && pb[0] == -1
	switch {
	case sa && !sb:
		return 1
	case sb && !sa:
		return -1
	}
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := cmp.Compare(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(pa), len(pb))
}

// MarshalText implements encoding.TextMarshaler.
func (n ChapterNumber) MarshalText() ([]byte, error) {
	return []byte(n), nil
}

// UnmarshalText canonicalizes the number. An empty value stays empty.
func (n *ChapterNumber) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*n = ""
		return nil
	}
	parsed, err := ParseChapterNumber(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// JSONSchema describes the chapter number for tool parameter schemas.
func (ChapterNumber) JSONSchema() (jsonschema.Schema, error) {
	return schema.Pattern("A chapter number in the format '1.2.3.' representing the hierarchical position in a book",
		`^(\d+\.)+$`, "1.", "3.2."), nil
}

// Chapter is a single chapter of a book.
type Chapter struct {
	Name        string        `json:"name" yaml:"name"`
	Number      ChapterNumber `json:"number" yaml:"number"`
	ParentNames []string      `json:"parent_names,omitempty" yaml:"parent_names,omitempty"`
	Path        string        `json:"path,omitempty" yaml:"path,omitempty"`
	Content     string        `json:"content" yaml:"-"`
	Sections    []string      `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// TOCLine renders the chapter as one table of contents line.
func (c *Chapter) TOCLine() string {
	indent := 0
	if !c.Number.IsPrefix() && !c.Number.IsSuffix() {
		indent = c.Number.Depth() - 1
	}
	return fmt.Sprintf("%s%s [%s](%s)  \n", strings.Repeat("  ", max(indent, 0)), c.Number, c.Name, c.Path)
}
