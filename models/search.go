package models

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stockadvisor/api"
)

// SearchBox debounces typing into at most one request per pause. Each change
// bumps seq; a tick or result carrying an older seq is ignored.
type SearchBox struct {
	Input    textinput.Model
	Debounce time.Duration
	Focused  bool
	Visible  bool
	Loading  bool
	Results  *api.SearchResults
	Err      string
	Cursor   int

	seq   int
	query string
}

type searchTickMsg struct {
	seq   int
	query string
}

type searchResultsMsg struct {
	epoch uint64
	seq   int
	data  *api.SearchResults
	err   error
}

func NewSearchBox(debounce time.Duration) SearchBox {
	ti := textinput.New()
	ti.Placeholder = "Search stocks..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 64
	return SearchBox{Input: ti, Debounce: debounce}
}

func (s *SearchBox) Focus() tea.Cmd {
	s.Focused = true
	return s.Input.Focus()
}

func (s *SearchBox) Blur() {
	s.Focused = false
	s.Input.Blur()
}

// Hide closes the results panel and cancels whatever is pending.
func (s *SearchBox) Hide() {
	s.seq++
	s.Visible = false
	s.Loading = false
}

// Reset clears the box entirely.
func (s *SearchBox) Reset() {
	s.Blur()
	s.Hide()
	s.Input.SetValue("")
	s.Results = nil
	s.Err = ""
	s.query = ""
}

// Update feeds a key to the input and, when the text changed, schedules a
// search after the debounce delay. An empty query hides the panel and sends
// nothing.
func (s *SearchBox) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)

	q := strings.TrimSpace(s.Input.Value())
	if q == s.query {
		return cmd
	}
	s.query = q
	return tea.Batch(cmd, s.schedule(q))
}

func (s *SearchBox) schedule(q string) tea.Cmd {
	s.seq++
	if len(q) < 1 {
		s.Visible = false
		s.Loading = false
		return nil
	}

	s.Visible = true
	s.Loading = true
	s.Err = ""
	seq := s.seq
	return tea.Tick(s.Debounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq, query: q}
	})
}

// Due reports whether tick is the latest scheduled search.
func (s *SearchBox) Due(tick searchTickMsg) bool {
	return tick.seq == s.seq
}

// Apply stores a search result if it still belongs to the current query.
func (s *SearchBox) Apply(msg searchResultsMsg) bool {
	if msg.seq != s.seq {
		return false
	}
	s.Loading = false
	s.Cursor = 0
	if msg.err != nil {
		s.Err = msg.err.Error()
		s.Results = nil
		return true
	}
	s.Err = ""
	s.Results = msg.data
	return true
}

// Selected returns the highlighted result symbol.
func (s *SearchBox) Selected() (string, bool) {
	if s.Results == nil || s.Cursor < 0 || s.Cursor >= len(s.Results.Results) {
		return "", false
	}
	return s.Results.Results[s.Cursor].Symbol, true
}

func (s *SearchBox) Move(delta int) {
	if s.Results == nil {
		return
	}
	s.Cursor = clamp(s.Cursor+delta, 0, len(s.Results.Results)-1)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(hi, v))
}
