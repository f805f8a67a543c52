package textstream

import "strings"

// Builder scripts a positioned text stream. Format parsers use it to turn a
// parsed document into events, and tests use it to write scenarios.
type Builder struct {
	events []Event
	page   int
	inPage bool
	done   bool
}

// NewBuilder returns a Builder that has already emitted DocumentStart.
func NewBuilder() *Builder {
	return &Builder{events: []Event{{Kind: DocumentStart}}}
}

// StartPage opens page n, closing the current page first if one is open.
func (b *Builder) StartPage(n int) *Builder {
	if b.inPage {
		b.EndPage()
	}
	b.page = n
	b.inPage = true
	b.events = append(b.events, Event{Kind: PageStart, Page: n})
	return b
}

// EndPage closes the current page. It is a no-op outside a page.
func (b *Builder) EndPage() *Builder {
	if !b.inPage {
		return b
	}
	b.inPage = false
	b.events = append(b.events, Event{Kind: PageEnd, Page: b.page})
	return b
}

// Run appends a single token run.
func (b *Builder) Run(text string, height float64) *Builder {
	b.events = append(b.events, Event{
		Kind:  TokenRun,
		Token: Token{Text: text, FontHeight: height},
	})
	return b
}

// Word appends a word separator.
func (b *Builder) Word() *Builder {
	b.events = append(b.events, Event{
		Kind:  WordSeparator,
		Token: Token{Text: DefaultWordSeparator, IsSeparator: true},
	})
	return b
}

// Line appends a line separator.
func (b *Builder) Line() *Builder {
	b.events = append(b.events, Event{
		Kind:  LineSeparator,
		Token: Token{Text: DefaultLineSeparator, IsSeparator: true},
	})
	return b
}

// Words splits text on whitespace and appends one run per word, with a word
// separator between consecutive words.
func (b *Builder) Words(text string, height float64) *Builder {
	for i, w := range strings.Fields(text) {
		if i > 0 {
			b.Word()
		}
		b.Run(w, height)
	}
	return b
}

// Events closes any open page, appends DocumentEnd and returns the stream.
// Later calls return the same events.
func (b *Builder) Events() []Event {
	if !b.done {
		b.EndPage()
		b.events = append(b.events, Event{Kind: DocumentEnd})
		b.done = true
	}
	return b.events
}

// Source is shorthand for NewSlice(b.Events()).
func (b *Builder) Source() *Slice {
	return NewSlice(b.Events())
}
