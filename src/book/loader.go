package book

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the book manifest inside a book directory.
const ManifestFile = "book.yaml"

// SummaryFile lists the chapters, relative to the source directory.
const SummaryFile = "SUMMARY.md"

// Manifest is the content of book.yaml.
type Manifest struct {
	Title       string   `yaml:"title"`
	Authors     []string `yaml:"authors"`
	Description string   `yaml:"description"`
	Src         string   `yaml:"src"`
}

// ReadManifest reads the manifest of the book in dir.
func ReadManifest(fsys afero.Fs, dir string) (*Manifest, error) {
	raw, err := afero.ReadFile(fsys, filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	if m.Src == "" {
		m.Src = "src"
	}
	if m.Title == "" {
		m.Title = filepath.Base(filepath.Clean(dir))
	}
	return &m, nil
}

// Load reads the book stored in dir.
func Load(fsys afero.Fs, dir string) (*Book, error) {
	m, err := ReadManifest(fsys, dir)
	if err != nil {
		return nil, err
	}
	srcDir := filepath.Join(dir, m.Src)
	summary, err := afero.ReadFile(fsys, filepath.Join(srcDir, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SummaryFile, err)
	}

	entries := parseSummary(summary)
	b := &Book{
		Title:       m.Title,
		Authors:     m.Authors,
		Description: m.Description,
		Chapters:    NewChapterIndex(),
	}
	for _, e := range entries {
		ch := &Chapter{
			Name:        e.name,
			Number:      e.number,
			ParentNames: e.parents,
			Path:        e.path,
		}
		if e.path != "" {
			content, err := readChapter(fsys, filepath.Join(srcDir, filepath.FromSlash(e.path)))
			if err != nil {
				return nil, fmt.Errorf("chapter %s %s: %w", e.number, e.name, err)
			}
			ch.Content = content
			ch.Sections = headings([]byte(content))
		}
		if b.Chapters.Put(ch) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChapter, e.number)
		}
	}
	return b, nil
}

func readChapter(fsys afero.Fs, p string) (string, error) {
	raw, err := afero.ReadFile(fsys, p)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".html", ".htm", ".xhtml":
		return htmlToMarkdown(raw)
	}
	return string(raw), nil
}

type summaryEntry struct {
	name    string
	path    string
	number  ChapterNumber
	parents []string
}

var mdParser = goldmark.New()

// parseSummary walks an mdBook SUMMARY.md. Links before the first list are
// prefix chapters, list items are numbered chapters and links after the
// first list are suffix chapters.
func parseSummary(source []byte) []summaryEntry {
	doc := mdParser.Parser().Parse(text.NewReader(source))

	var (
		entries  []summaryEntry
		seenList bool
		prefix   = 1
		suffix   = 1
		top      = 1
	)
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.List:
			seenList = true
			entries = append(entries, parseList(n, source, ChapterNumber(""), nil, &top)...)
		case *ast.Paragraph:
			for _, link := range links(n) {
				e := summaryEntry{name: nodeText(link, source), path: linkPath(link)}
				if seenList {
					e.number = NewChapterNumber(-1, suffix)
					suffix++
				} else {
					e.number = NewChapterNumber(0, prefix)
					prefix++
				}
				entries = append(entries, e)
			}
		}
	}
	return entries
}

func parseList(list *ast.List, source []byte, parent ChapterNumber, parents []string, counter *int) []summaryEntry {
	var entries []summaryEntry
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var (
			entry  *summaryEntry
			nested []*ast.List
		)
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if entry != nil {
				continue
			}
			ls := links(child)
			if len(ls) == 0 {
				continue
			}
			entry = &summaryEntry{
				name:    nodeText(ls[0], source),
				path:    linkPath(ls[0]),
				number:  parent.Child(*counter),
				parents: parents,
			}
		}
		if entry == nil {
			continue
		}
		*counter++
		entries = append(entries, *entry)
		childParents := append(append([]string(nil), parents...), entry.name)
		sub := 1
		for _, l := range nested {
			entries = append(entries, parseList(l, source, entry.number, childParents, &sub)...)
		}
	}
	return entries
}

func links(node ast.Node) []*ast.Link {
	var out []*ast.Link
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.List); ok && n != node {
			return ast.WalkSkipChildren, nil
		}
		if l, ok := n.(*ast.Link); ok {
			out = append(out, l)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func linkPath(l *ast.Link) string {
	dest := string(l.Destination)
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return ""
	}
	return path.Clean(dest)
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// headings returns the heading titles of a markdown document in order.
func headings(source []byte) []string {
	doc := mdParser.Parser().Parse(text.NewReader(source))
	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			if t := nodeText(h, source); t != "" {
				out = append(out, t)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}
