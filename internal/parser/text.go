package parser

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
)

// TextParser handles plain text files. Form feeds split pages and every line
// carries the body size, so plain text never yields titles unless the body
// size is configured above the threshold.
type TextParser struct {
	Options Options
}

func (p *TextParser) Parse(ctx context.Context, r io.Reader, filename string) (textstream.Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := textstream.NewBuilder()
	page := 1
	open := func() {
		if p.Options.pageInRange(page) {
			b.StartPage(page)
		}
	}
	open()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parts := strings.Split(scanner.Text(), "\f")
		for i, line := range parts {
			if i > 0 {
				b.EndPage()
				page++
				open()
			}
			if !p.Options.pageInRange(page) || strings.TrimSpace(line) == "" {
				continue
			}
			b.Words(line, p.Options.BodySize).Line()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.Source(), nil
}
