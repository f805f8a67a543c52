package doctree

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/titlegest/internal/titles"
)

// DocTree is the outline of an extracted document.
type DocTree struct {
	Title    string     `json:"title" yaml:"title"` // Name passed to Build, usually the filename
	Pages    int        `json:"pages" yaml:"pages"`
	Children []*DocNode `json:"sections" yaml:"sections"` // Sections in reading order
}

// DocNode is one section of the outline: a detected title and the page text
// that follows it.
type DocNode struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"` // Section heading (empty for text before the first title on a page)
	Text     string `json:"text" yaml:"text"` // Body after the heading, trimmed
	Page     int    `json:"page" yaml:"page"`
	Position int    `json:"position" yaml:"position"` // Rune offset of the section within the page text
}

// Build turns an extraction result into an outline. Each committed title
// starts a section whose text runs from the end of the title to the next
// title or the end of its page. Text before the first title of a page becomes
// an untitled section.
func Build(name string, res titles.DocumentResult) *DocTree {
	tree := &DocTree{Title: name, Pages: len(res.Pages), Children: []*DocNode{}}
	for _, page := range res.Pages {
		text := []rune(page.Text)
		cut := func(from, to int) string {
			from = clamp(from, 0, len(text))
			to = clamp(to, from, len(text))
			return strings.TrimSpace(string(text[from:to]))
		}

		first := len(text)
		if len(page.Titles) > 0 {
			first = page.Titles[0].Position
		}
		if lead := cut(0, first); lead != "" {
			tree.Children = append(tree.Children, &DocNode{Text: lead, Page: page.Number})
		}

		for i, c := range page.Titles {
			end := len(text)
			if i+1 < len(page.Titles) {
				end = page.Titles[i+1].Position
			}
			tree.Children = append(tree.Children, &DocNode{
				Title:    strings.Join(strings.Fields(c.Text), " "),
				Text:     cut(c.Position+utf8.RuneCountInString(c.Text), end),
				Page:     page.Number,
				Position: c.Position,
			})
		}
	}
	return tree
}

// Titled returns only the sections that carry a title.
func (t *DocTree) Titled() []*DocNode {
	var out []*DocNode
	for _, n := range t.Children {
		if n.Title != "" {
			out = append(out, n)
		}
	}
	return out
}

// String renders the outline as one line per titled section.
func (t *DocTree) String() string {
	var b strings.Builder
	b.WriteString(t.Title)
	b.WriteByte('\n')
	for _, n := range t.Titled() {
		fmt.Fprintf(&b, "  p.%d  %s\n", n.Page, n.Title)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
