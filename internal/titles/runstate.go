package titles

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/titlegest/internal/textstream"
)

// Candidate is a committed title run. Position is the rune offset, separators
// included, of the run's first character within the page text.
type Candidate struct {
	Text     string `json:"text" yaml:"text"`
	Position int    `json:"position" yaml:"position"`
}

// RunState is the per-page state of the title state machine. Use
// NewRunState for each page; a RunState must not be copied after use.
type RunState struct {
	currentFontHeight float64

	titleOpen   bool
	titleBuffer strings.Builder
	titleRunes  int
	titleStart  int

	pageCharCount      int
	pageSeparatorCount int

	lastCommitted    int
	hasLastCommitted bool
}

// NewRunState returns the state for the start of a page.
func NewRunState() *RunState {
	return &RunState{currentFontHeight: NoSize}
}

// Offset is the rune offset of the next character on the page.
func (s *RunState) Offset() int {
	return s.pageCharCount + s.pageSeparatorCount
}

// CharCount is the number of non-separator runes seen on the page.
func (s *RunState) CharCount() int { return s.pageCharCount }

// SeparatorCount is the number of separator runes seen on the page.
func (s *RunState) SeparatorCount() int { return s.pageSeparatorCount }

// CurrentFontHeight is the normalized height of the last non-separator token.
func (s *RunState) CurrentFontHeight() float64 { return s.currentFontHeight }

// TitleOpen reports whether a title run is being accumulated.
func (s *RunState) TitleOpen() bool { return s.titleOpen }

// PendingTitle returns the text accumulated so far for the open run.
func (s *RunState) PendingTitle() string { return s.titleBuffer.String() }

// LastCommitted returns the start offset of the last committed title on the
// page, if any.
func (s *RunState) LastCommitted() (int, bool) {
	return s.lastCommitted, s.hasLastCommitted
}

// Apply feeds one token through the state machine. It returns the committed
// candidate when the token closes a run that qualifies as a title.
func (s *RunState) Apply(tok textstream.Token, cfg Config) (Candidate, bool) {
	n := utf8.RuneCountInString(tok.Text)

	if tok.IsSeparator {
		if s.titleOpen {
			s.appendTitle(tok.Text, n)
		}
		s.pageSeparatorCount += n
		return Candidate{}, false
	}

	height := NormalizeHeight(tok.FontHeight)
	var (
		committed Candidate
		ok        bool
	)

	switch Classify(s.currentFontHeight, height, cfg.TitleFontSize) {
	case Rise:
		if s.titleOpen {
			s.appendTitle(tok.Text, n)
		} else if s.distanceAllows(cfg.MinTitleDistance) {
			s.openTitle(tok.Text, n)
		}
	case Sustain:
		if s.titleOpen {
			s.appendTitle(tok.Text, n)
		}
	case Fall:
		committed, ok = s.closeTitle(cfg.MinTitleLength)
	case Neutral:
	}

	s.pageCharCount += n
	s.currentFontHeight = height
	return committed, ok
}

// distanceAllows applies the gate against the last committed title start.
func (s *RunState) distanceAllows(minDistance int) bool {
	if !s.hasLastCommitted {
		return true
	}
	return s.Offset()-s.lastCommitted >= minDistance
}

func (s *RunState) openTitle(text string, n int) {
	s.titleOpen = true
	s.titleStart = s.Offset()
	s.titleBuffer.Reset()
	s.titleRunes = 0
	s.appendTitle(text, n)
}

func (s *RunState) appendTitle(text string, n int) {
	s.titleBuffer.WriteString(text)
	s.titleRunes += n
}

// closeTitle ends the current run. Short runs are discarded.
func (s *RunState) closeTitle(minLength int) (Candidate, bool) {
	var (
		c  Candidate
		ok bool
	)
	if s.titleOpen && s.titleRunes > minLength {
		c = Candidate{Text: s.titleBuffer.String(), Position: s.titleStart}
		ok = true
		s.lastCommitted = s.titleStart
		s.hasLastCommitted = true
	}
	s.titleOpen = false
	s.titleBuffer.Reset()
	s.titleRunes = 0
	return c, ok
}
