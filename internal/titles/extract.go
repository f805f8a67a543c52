// Package titles detects title candidates in positioned text by watching the
// reported font height cross a threshold.
//
// The detector is a small per-page state machine. Each token is classified
// against the previous token's height as a rise, sustain, fall or neutral
// transition; a rise opens a title run, a fall closes it, and a closed run is
// kept when it is long enough and far enough from the previous title on the
// same page.
package titles

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/titlegest/internal/textstream"
)

// ErrProtocol is returned when a source emits events out of order.
var ErrProtocol = errors.New("malformed text stream")

// DocumentResult is the per-page extraction result for a whole document.
type DocumentResult struct {
	Pages []PageResult `json:"pages" yaml:"pages"`
}

// TitleCount returns the number of titles across all pages.
func (d DocumentResult) TitleCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Titles)
	}
	return n
}

// Texts returns the page texts in order.
func (d DocumentResult) Texts() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Text
	}
	return out
}

// Option customizes an extraction run.
type Option func(*options)

type options struct {
	log    *slog.Logger
	onPage func(PageResult)
}

// WithLogger logs page and title events at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithPageHook calls fn with each page as soon as it is complete.
func WithPageHook(fn func(PageResult)) Option {
	return func(o *options) { o.onPage = fn }
}

// Extract runs the title detector over every page of src.
func Extract(src textstream.Source, cfg Config, opts ...Option) (DocumentResult, error) {
	if err := cfg.Validate(); err != nil {
		return DocumentResult{}, err
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	col := NewCollector(cfg)
	if o.log != nil {
		col.onCommit = func(page int, c Candidate) {
			o.log.Debug("title committed", "page", page, "position", c.Position, "text", c.Text)
		}
	}

	res := DocumentResult{Pages: []PageResult{}}
	ended := false
	for {
		e, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
		if ended {
			return res, fmt.Errorf("%w: %s after document end", ErrProtocol, e.Kind)
		}

		switch e.Kind {
		case textstream.DocumentStart:
			if col.InPage() || len(res.Pages) > 0 {
				return res, fmt.Errorf("%w: document start inside document", ErrProtocol)
			}
		case textstream.PageStart:
			if col.InPage() {
				return res, fmt.Errorf("%w: page %d started before page end", ErrProtocol, e.Page)
			}
			col.StartPage(e.Page)
		case textstream.TokenRun:
			if !col.InPage() {
				return res, fmt.Errorf("%w: token outside page", ErrProtocol)
			}
			tok := e.Token
			tok.IsSeparator = false
			col.Push(tok)
		case textstream.WordSeparator, textstream.LineSeparator:
			if !col.InPage() {
				return res, fmt.Errorf("%w: %s outside page", ErrProtocol, e.Kind)
			}
			col.Push(textstream.SeparatorToken(e))
		case textstream.PageEnd:
			if !col.InPage() {
				return res, fmt.Errorf("%w: page %d ended without start", ErrProtocol, e.Page)
			}
			if st := col.State(); st.TitleOpen() && o.log != nil {
				o.log.Debug("open title dropped at page end", "page", e.Page, "text", st.PendingTitle())
			}
			page := col.EndPage()
			res.Pages = append(res.Pages, page)
			if o.log != nil {
				o.log.Debug("page complete", "page", page.Number, "titles", len(page.Titles))
			}
			if o.onPage != nil {
				o.onPage(page)
			}
		case textstream.DocumentEnd:
			if col.InPage() {
				return res, fmt.Errorf("%w: document ended inside a page", ErrProtocol)
			}
			ended = true
		default:
			return res, fmt.Errorf("%w: unknown event %s", ErrProtocol, e.Kind)
		}
	}

	if col.InPage() {
		return res, fmt.Errorf("%w: stream ended inside a page", ErrProtocol)
	}
	return res, nil
}
