package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/dgallion1/titlegest/internal/textstream"
)

func TestMarkdownParser_HeadingSizes(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1
`
	p := &MarkdownParser{Options: DefaultOptions()}
	src, err := p.Parse(context.Background(), strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := runs(t, src)
	want := []textstream.Token{
		{Text: "Title", FontHeight: 24},
		{Text: "Intro", FontHeight: 10},
		{Text: "text.", FontHeight: 10},
		{Text: "Section", FontHeight: 18},
		{Text: "A", FontHeight: 18},
		{Text: "Section", FontHeight: 10},
		{Text: "A", FontHeight: 10},
		{Text: "content.", FontHeight: 10},
		{Text: "Subsection", FontHeight: 14},
		{Text: "A1", FontHeight: 14},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d runs, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestMarkdownParser_SinglePage(t *testing.T) {
	p := &MarkdownParser{Options: DefaultOptions()}
	src, err := p.Parse(context.Background(), strings.NewReader("# A\n\ntext\n"), "a.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := pages(t, src)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected one page numbered 1, got %v", got)
	}
}

func TestMarkdownParser_NoDuplicateParagraphText(t *testing.T) {
	p := &MarkdownParser{Options: DefaultOptions()}
	src, err := p.Parse(context.Background(), strings.NewReader("alpha beta\n"), "a.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := runs(t, src)
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %+v", got)
	}
}

func TestMarkdownParser_CodeBlock(t *testing.T) {
	input := "```\nfunc main() {}\n```\n"
	p := &MarkdownParser{Options: DefaultOptions()}
	src, err := p.Parse(context.Background(), strings.NewReader(input), "a.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := runs(t, src)
	if len(got) != 3 || got[0].Text != "func" {
		t.Errorf("expected code block words, got %+v", got)
	}
}

func TestMarkdownParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &MarkdownParser{Options: DefaultOptions()}
	if _, err := p.Parse(ctx, strings.NewReader("# A\n"), "a.md"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
