package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// HTMLParser handles HTML files. The document is a single page; h1-h6 get
// the nominal heading sizes and block text gets the body size.
type HTMLParser struct {
	Options Options
}

func (p *HTMLParser) Parse(ctx context.Context, r io.Reader, filename string) (textstream.Source, error) {
	utf8Reader, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("detect html charset: %w", err)
	}
	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := textstream.NewBuilder().StartPage(1)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				writeLines(b, textContent(n, false), p.Options.headingSize(level))
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "title", "head":
				return
			case "pre":
				writeLines(b, textContent(n, true), p.Options.BodySize)
				return
			case "p", "li", "td", "th", "blockquote", "dt", "dd", "figcaption":
				writeLines(b, textContent(n, false), p.Options.BodySize)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return b.Source(), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// textContent collects the text under n. Source newlines are collapsed
// unless preserve is set; <br> always breaks the line.
func textContent(n *html.Node, preserve bool) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			if preserve {
				buf.WriteString(n.Data)
			} else {
				buf.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			}
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
