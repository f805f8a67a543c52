package doctree

import (
	"strings"
	"testing"

	"github.com/dgallion1/titlegest/internal/titles"
)

func TestBuild_SplitsAtTitles(t *testing.T) {
	text := "preface text Üntitled Section body one Second Title body two"
	first := strings.Index(text, "Üntitled")
	second := strings.Index(text, "Second")
	res := titles.DocumentResult{Pages: []titles.PageResult{{
		Number: 1,
		Text:   text,
		Titles: []titles.Candidate{
			// Positions are rune offsets; "Ü" is two bytes.
			{Text: "Üntitled Section ", Position: first},
			{Text: "Second Title ", Position: second - 1},
		},
	}}}

	tree := Build("doc.pdf", res)
	if tree.Title != "doc.pdf" || tree.Pages != 1 {
		t.Errorf("unexpected tree header: %q, %d pages", tree.Title, tree.Pages)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(tree.Children))
	}

	lead := tree.Children[0]
	if lead.Title != "" || lead.Text != "preface text" {
		t.Errorf("unexpected lead section: %+v", lead)
	}
	if got := tree.Children[1]; got.Title != "Üntitled Section" || got.Text != "body one" {
		t.Errorf("unexpected first section: %+v", got)
	}
	if got := tree.Children[2]; got.Title != "Second Title" || got.Text != "body two" {
		t.Errorf("unexpected second section: %+v", got)
	}
}

func TestBuild_PagesAndEmpty(t *testing.T) {
	res := titles.DocumentResult{Pages: []titles.PageResult{
		{Number: 1, Text: "", Titles: []titles.Candidate{}},
		{Number: 2, Text: "Heading Here rest", Titles: []titles.Candidate{{Text: "Heading Here ", Position: 0}}},
	}}
	tree := Build("x", res)
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 section, got %d", len(tree.Children))
	}
	if tree.Children[0].Page != 2 || tree.Children[0].Text != "rest" {
		t.Errorf("expected page 2 section with text %q, got %+v", "rest", tree.Children[0])
	}
	if len(tree.Titled()) != 1 {
		t.Errorf("expected 1 titled section, got %d", len(tree.Titled()))
	}
	if !strings.Contains(tree.String(), "p.2  Heading Here") {
		t.Errorf("unexpected outline rendering:\n%s", tree.String())
	}
}

func TestBuild_OutOfRangePosition(t *testing.T) {
	res := titles.DocumentResult{Pages: []titles.PageResult{
		{Number: 1, Text: "short", Titles: []titles.Candidate{{Text: "ghost title", Position: 99}}},
	}}
	tree := Build("x", res)
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(tree.Children))
	}
	if tree.Children[1].Text != "" {
		t.Errorf("expected empty text for out-of-range title, got %q", tree.Children[1].Text)
	}
}

func TestBuild_NoPages(t *testing.T) {
	tree := Build("empty", titles.DocumentResult{})
	if tree.Children == nil || len(tree.Children) != 0 {
		t.Errorf("expected empty non-nil sections, got %v", tree.Children)
	}
}

func TestBuild_TitleOverrunsNextTitle(t *testing.T) {
	// A title whose text reaches past the next title's start yields an
	// empty body instead of a negative slice.
	res := titles.DocumentResult{Pages: []titles.PageResult{{
		Number: 1,
		Text:   "Long Heading Text Next Heading tail",
		Titles: []titles.Candidate{
			{Text: "Long Heading Text Next", Position: 0},
			{Text: "Next Heading ", Position: 18},
		},
	}}}
	tree := Build("x", res)
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(tree.Children))
	}
	if tree.Children[0].Text != "" {
		t.Errorf("expected empty body, got %q", tree.Children[0].Text)
	}
	if tree.Children[1].Text != "tail" {
		t.Errorf("expected %q, got %q", "tail", tree.Children[1].Text)
	}
}
