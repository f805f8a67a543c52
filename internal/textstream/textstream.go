// Package textstream defines the positioned text protocol shared by the
// format parsers and the title detector.
package textstream

import (
	"fmt"
	"io"
)

// Default separator text used when a separator event carries none.
const (
	DefaultWordSeparator = " "
	DefaultLineSeparator = "\n"
)

// Kind identifies an event in a positioned text stream.
type Kind int

const (
	DocumentStart Kind = iota
	PageStart
	TokenRun
	WordSeparator
	LineSeparator
	PageEnd
	DocumentEnd
)

func (k Kind) String() string {
	switch k {
	case DocumentStart:
		return "document_start"
	case PageStart:
		return "page_start"
	case TokenRun:
		return "token"
	case WordSeparator:
		return "word_separator"
	case LineSeparator:
		return "line_separator"
	case PageEnd:
		return "page_end"
	case DocumentEnd:
		return "document_end"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one contiguous run of text sharing a reported font height.
type Token struct {
	Text        string
	FontHeight  float64 // points; 0 when the source has no size
	IsSeparator bool
}

// Event is a single item of a positioned text stream. Page is set on
// PageStart and PageEnd. Token is set on TokenRun and separator events.
type Event struct {
	Kind  Kind
	Page  int
	Token Token
}

// Source yields events in document order. Next returns io.EOF once the
// stream is exhausted.
type Source interface {
	Next() (Event, error)
}

// SeparatorToken returns the token for a separator event, filling in the
// default separator text when the event has none.
func SeparatorToken(e Event) Token {
	tok := e.Token
	tok.IsSeparator = true
	if tok.Text == "" {
		if e.Kind == LineSeparator {
			tok.Text = DefaultLineSeparator
		} else {
			tok.Text = DefaultWordSeparator
		}
	}
	return tok
}

// Slice is an in-memory Source over a fixed list of events.
type Slice struct {
	events []Event
	pos    int
}

// NewSlice returns a Source that replays events in order.
func NewSlice(events []Event) *Slice {
	return &Slice{events: events}
}

func (s *Slice) Next() (Event, error) {
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	e := s.events[s.pos]
	s.pos++
	return e, nil
}

// Rewind resets the source to its first event.
func (s *Slice) Rewind() {
	s.pos = 0
}

// Len returns the total number of events.
func (s *Slice) Len() int {
	return len(s.events)
}

// Collect drains a Source into a slice of events.
func Collect(src Source) ([]Event, error) {
	var out []Event
	for {
		e, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}
