package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. Glyphs are read from each page's content
// stream in order; consecutive glyphs of the same size on the same baseline
// become one token.
type PDFParser struct {
	Options Options
}

func (p *PDFParser) Parse(ctx context.Context, r io.Reader, filename string) (textstream.Source, error) {
	// ledongthuc/pdf requires a ReaderAt and a size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filename, err)
	}

	first, last := 1, reader.NumPage()
	if p.Options.StartPage > first {
		first = p.Options.StartPage
	}
	if p.Options.EndPage > 0 && p.Options.EndPage < last {
		last = p.Options.EndPage
	}
	return &pdfSource{ctx: ctx, reader: reader, next: first, last: last}, nil
}

func openPDF(data []byte) (reader *pdflib.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pdfSource loads one page at a time.
type pdfSource struct {
	ctx    context.Context
	reader *pdflib.Reader
	next   int
	last   int

	queue   []textstream.Event
	started bool
	ended   bool
}

func (s *pdfSource) Next() (textstream.Event, error) {
	for len(s.queue) == 0 {
		if !s.started {
			s.started = true
			return textstream.Event{Kind: textstream.DocumentStart}, nil
		}
		if s.next > s.last {
			if !s.ended {
				s.ended = true
				return textstream.Event{Kind: textstream.DocumentEnd}, nil
			}
			return textstream.Event{}, io.EOF
		}
		if err := s.ctx.Err(); err != nil {
			return textstream.Event{}, err
		}
		n := s.next
		s.next++
		texts, err := pageGlyphs(s.reader.Page(n))
		if err != nil {
			return textstream.Event{}, fmt.Errorf("page %d: %w", n, err)
		}
		s.queue = glyphEvents(n, texts)
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, nil
}

func pageGlyphs(page pdflib.Page) (texts []pdflib.Text, err error) {
	if page.V.IsNull() {
		return nil, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read page content: %v", rec)
		}
	}()
	return page.Content().Text, nil
}

// glyphEvents groups a page's glyphs into token runs and separators.
func glyphEvents(page int, texts []pdflib.Text) []textstream.Event {
	g := glyphGrouper{events: []textstream.Event{{Kind: textstream.PageStart, Page: page}}}
	var prev *pdflib.Text
	for i := range texts {
		t := &texts[i]
		switch {
		case t.S == "":
			continue
		case t.S == "\n" || t.S == "\r" || t.S == "\r\n":
			g.separator(textstream.LineSeparator)
			prev = nil
			continue
		case strings.TrimSpace(t.S) == "":
			g.separator(textstream.WordSeparator)
			prev = t
			continue
		}

		if prev != nil {
			switch {
			case lineChanged(prev, t):
				g.separator(textstream.LineSeparator)
			case wordGap(prev, t):
				g.separator(textstream.WordSeparator)
			case prev.FontSize != t.FontSize:
				g.flush()
			}
		}
		g.add(t.S, t.FontSize)
		prev = t
	}
	g.flush()
	g.events = append(g.events, textstream.Event{Kind: textstream.PageEnd, Page: page})
	return g.events
}

type glyphGrouper struct {
	events []textstream.Event
	run    strings.Builder
	size   float64
}

func (g *glyphGrouper) add(s string, size float64) {
	if g.run.Len() == 0 {
		g.size = size
	}
	g.run.WriteString(s)
}

func (g *glyphGrouper) flush() {
	if g.run.Len() == 0 {
		return
	}
	g.events = append(g.events, textstream.Event{
		Kind:  textstream.TokenRun,
		Token: textstream.Token{Text: g.run.String(), FontHeight: g.size},
	})
	g.run.Reset()
}

// separator emits at most one separator between tokens. A line break wins
// over a pending word break; leading separators are dropped.
func (g *glyphGrouper) separator(kind textstream.Kind) {
	g.flush()
	last := &g.events[len(g.events)-1]
	switch last.Kind {
	case textstream.PageStart, textstream.LineSeparator:
		return
	case textstream.WordSeparator:
		if kind == textstream.LineSeparator {
			*last = sepEvent(kind)
		}
		return
	}
	g.events = append(g.events, sepEvent(kind))
}

func sepEvent(kind textstream.Kind) textstream.Event {
	text := textstream.DefaultWordSeparator
	if kind == textstream.LineSeparator {
		text = textstream.DefaultLineSeparator
	}
	return textstream.Event{Kind: kind, Token: textstream.Token{Text: text, IsSeparator: true}}
}

func lineChanged(prev, cur *pdflib.Text) bool {
	tol := math.Max(math.Max(prev.FontSize, cur.FontSize)*0.5, 1)
	return math.Abs(prev.Y-cur.Y) > tol
}

func wordGap(prev, cur *pdflib.Text) bool {
	gap := cur.X - (prev.X + prev.W)
	threshold := math.Max(prev.FontSize*0.2, 1)
	return gap > threshold || gap < -math.Max(prev.FontSize, 1)
}
