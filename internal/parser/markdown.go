package parser

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. The document is a
// single page; headings get the nominal heading sizes.
type MarkdownParser struct {
	Options Options
}

func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, filename string) (textstream.Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := textstream.NewBuilder().StartPage(1)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch node := n.(type) {
		case *ast.Heading:
			writeLines(b, string(node.Text(src)), p.Options.headingSize(node.Level))
		default:
			writeLines(b, extractText(n, src), p.Options.BodySize)
		}
	}
	return b.Source(), nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	// Leaf blocks such as code blocks only carry raw lines.
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			if buf.Len() > 0 && c.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}

// writeLines emits each non-blank line of s as words followed by a line
// separator.
func writeLines(b *textstream.Builder, s string, size float64) {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.Words(line, size).Line()
	}
}
