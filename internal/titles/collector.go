package titles

import (
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
)

// PageResult is the extracted text and committed titles of one page.
type PageResult struct {
	Number int         `json:"page" yaml:"page"`
	Text   string      `json:"text" yaml:"text"`
	Titles []Candidate `json:"titles" yaml:"titles"`
}

// Collector owns the working state of the current page: the reconstructed
// text, the title state machine and the committed candidates.
type Collector struct {
	cfg Config

	inPage bool
	number int
	state  *RunState
	text   strings.Builder
	titles []Candidate

	onCommit func(page int, c Candidate)
}

// NewCollector returns a Collector for the given thresholds. The config is
// assumed valid.
func NewCollector(cfg Config) *Collector {
	return &Collector{cfg: cfg}
}

// InPage reports whether a page is open.
func (c *Collector) InPage() bool { return c.inPage }

// State exposes the current page's state machine. It is nil before the
// first page.
func (c *Collector) State() *RunState { return c.state }

// StartPage discards any working state and opens page n.
func (c *Collector) StartPage(n int) {
	c.inPage = true
	c.number = n
	c.state = NewRunState()
	c.text.Reset()
	c.titles = []Candidate{}
}

// Push appends a token to the page text and runs it through the state
// machine. Tokens pushed outside a page are ignored.
func (c *Collector) Push(tok textstream.Token) {
	if !c.inPage {
		return
	}
	c.text.WriteString(tok.Text)
	if cand, ok := c.state.Apply(tok, c.cfg); ok {
		c.titles = append(c.titles, cand)
		if c.onCommit != nil {
			c.onCommit(c.number, cand)
		}
	}
}

// EndPage freezes the page. A title run still open at this point is dropped.
func (c *Collector) EndPage() PageResult {
	res := PageResult{
		Number: c.number,
		Text:   c.text.String(),
		Titles: c.titles,
	}
	if res.Titles == nil {
		res.Titles = []Candidate{}
	}
	c.inPage = false
	c.state = nil
	c.text.Reset()
	c.titles = nil
	return res
}
