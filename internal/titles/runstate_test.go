package titles

import (
	"testing"

	"github.com/dgallion1/titlegest/internal/textstream"
)

func run(text string, h float64) textstream.Token {
	return textstream.Token{Text: text, FontHeight: h}
}

func sep(text string) textstream.Token {
	return textstream.Token{Text: text, IsSeparator: true}
}

func TestRunState_NewIsZero(t *testing.T) {
	s := NewRunState()
	if s.Offset() != 0 || s.CharCount() != 0 || s.SeparatorCount() != 0 {
		t.Errorf("expected zero counters, got chars=%d seps=%d", s.CharCount(), s.SeparatorCount())
	}
	if s.TitleOpen() {
		t.Error("expected no open title")
	}
	if _, ok := s.LastCommitted(); ok {
		t.Error("expected no committed title")
	}
	if s.CurrentFontHeight() != NoSize {
		t.Errorf("expected NoSize, got %v", s.CurrentFontHeight())
	}
}

func TestRunState_ApplySequence(t *testing.T) {
	c := Config{TitleFontSize: 8, MinTitleLength: 3, MinTitleDistance: 100}
	s := NewRunState()

	if _, ok := s.Apply(run("Big", 10), c); ok {
		t.Fatal("rise must not commit")
	}
	if !s.TitleOpen() || s.PendingTitle() != "Big" {
		t.Fatalf("expected open title %q, got open=%v %q", "Big", s.TitleOpen(), s.PendingTitle())
	}

	s.Apply(sep(" "), c)
	if s.SeparatorCount() != 1 || s.CharCount() != 3 {
		t.Errorf("expected chars=3 seps=1, got chars=%d seps=%d", s.CharCount(), s.SeparatorCount())
	}
	if s.CurrentFontHeight() != 10 {
		t.Errorf("separator must not change font height, got %v", s.CurrentFontHeight())
	}

	s.Apply(run("Title", 10), c)
	cand, ok := s.Apply(run("normal text", 5), c)
	if !ok {
		t.Fatal("expected fall to commit")
	}
	if cand.Text != "Big Title" || cand.Position != 0 {
		t.Errorf("unexpected candidate %+v", cand)
	}
	if s.TitleOpen() || s.PendingTitle() != "" {
		t.Error("expected buffer cleared after fall")
	}
	if pos, ok := s.LastCommitted(); !ok || pos != 0 {
		t.Errorf("expected last committed 0, got %d %v", pos, ok)
	}
	if s.Offset() != 20 {
		t.Errorf("expected offset 20, got %d", s.Offset())
	}
}

func TestRunState_GatedRiseThenSustainStaysClosed(t *testing.T) {
	c := Config{TitleFontSize: 8, MinTitleLength: 0, MinTitleDistance: 50}
	s := NewRunState()
	s.Apply(run("First", 9), c)
	s.Apply(run("x", 1), c)

	s.Apply(run("Near", 9), c)
	if s.TitleOpen() {
		t.Fatal("expected gated rise to leave the buffer closed")
	}
	s.Apply(run("More", 9), c)
	if s.TitleOpen() {
		t.Fatal("expected sustain on a closed buffer to be a no-op")
	}
	if _, ok := s.Apply(run("body", 1), c); ok {
		t.Error("expected no commit for a gated run")
	}
	if s.CharCount() != 5+1+4+4+4 {
		t.Errorf("expected gated tokens to still count, got %d", s.CharCount())
	}
}

func TestRunState_NoSizeTokens(t *testing.T) {
	c := Config{TitleFontSize: 8, MinTitleLength: 0, MinTitleDistance: 0}
	s := NewRunState()
	s.Apply(run("Heading", 12), c)
	cand, ok := s.Apply(run("?", 0), c)
	if !ok || cand.Text != "Heading" {
		t.Errorf("expected a no-size token to close the run, got %+v %v", cand, ok)
	}
	s.Apply(run("??", -3), c)
	if s.TitleOpen() {
		t.Error("expected negative height never to open a run")
	}
}

func TestRunState_RuneCounting(t *testing.T) {
	c := Config{TitleFontSize: 8, MinTitleLength: 4, MinTitleDistance: 0}
	s := NewRunState()
	s.Apply(run("日本語", 5), c)
	s.Apply(run("見出し語", 10), c)
	cand, ok := s.Apply(run("本文", 5), c)
	if s.CharCount() != 9 {
		t.Errorf("expected 9 runes counted, got %d", s.CharCount())
	}
	// Four runes is not strictly longer than four.
	if ok {
		t.Errorf("expected four-rune title to be rejected, got %+v", cand)
	}
}

func TestCollector_IgnoresTokensOutsidePage(t *testing.T) {
	col := NewCollector(DefaultConfig())
	col.Push(run("lost", 10))
	if col.InPage() || col.State() != nil {
		t.Fatal("expected collector idle before the first page")
	}

	col.StartPage(4)
	col.Push(run("kept", 3))
	res := col.EndPage()
	if res.Text != "kept" || res.Number != 4 {
		t.Errorf("unexpected page %+v", res)
	}
	if res.Titles == nil {
		t.Error("expected non-nil titles")
	}
}

func TestCollector_StartPageResets(t *testing.T) {
	c := Config{TitleFontSize: 8, MinTitleLength: 0, MinTitleDistance: 0}
	col := NewCollector(c)
	col.StartPage(1)
	col.Push(run("Heading", 10))
	col.Push(run("body", 5))
	col.StartPage(2)
	if col.State().Offset() != 0 || col.State().TitleOpen() {
		t.Error("expected fresh run state on a new page")
	}
	col.Push(run("b", 5))
	res := col.EndPage()
	if res.Text != "b" || len(res.Titles) != 0 {
		t.Errorf("expected page 1 state not to leak, got %+v", res)
	}
}
