package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stockadvisor/ui"
)

// Form is a vertical list of inputs. A field with options is a selector that
// cycles with left and right instead of accepting text.
type Form struct {
	Title  string
	Fields []Field
	Focus  int
	Error  string
}

type Field struct {
	Label   string
	Input   textinput.Model
	Options []string
	Choice  int
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 256
	return ti
}

// NewForm creates a form with one text input per label and focuses the first.
func NewForm(title string, labels ...string) *Form {
	f := &Form{Title: title}
	for _, l := range labels {
		f.Fields = append(f.Fields, Field{Label: l, Input: newInput(l)})
	}
	f.focus(0)
	return f
}

// WithOptions turns field i into a selector.
func (f *Form) WithOptions(i int, options ...string) *Form {
	f.Fields[i].Options = options
	return f
}

// Masked hides what is typed into field i.
func (f *Form) Masked(i int) *Form {
	f.Fields[i].Input.EchoMode = textinput.EchoPassword
	f.Fields[i].Input.EchoCharacter = '•'
	return f
}

func (f *Form) Set(i int, v string) *Form {
	f.Fields[i].Input.SetValue(v)
	return f
}

// Value returns the trimmed text of field i, or its selected option.
func (f *Form) Value(i int) string {
	fl := f.Fields[i]
	if len(fl.Options) > 0 {
		return fl.Options[fl.Choice]
	}
	return strings.TrimSpace(fl.Input.Value())
}

// Raw returns field i exactly as typed. Passwords are not trimmed.
func (f *Form) Raw(i int) string {
	return f.Fields[i].Input.Value()
}

// Float parses field i, returning 0 for anything that is not a finite number.
func (f *Form) Float(i int) float64 {
	v, err := strconv.ParseFloat(f.Value(i), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Whole reads the leading integer of field i, so "12.7" is 12 and "1e30" is 1.
// Anything without leading digits, or too large for an int, is 0.
func (f *Form) Whole(i int) int {
	s := f.Value(i)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func (f *Form) focus(i int) tea.Cmd {
	for j := range f.Fields {
		f.Fields[j].Input.Blur()
	}
	f.Focus = i
	return f.Fields[i].Input.Focus()
}

func (f *Form) Next() tea.Cmd {
	return f.focus((f.Focus + 1) % len(f.Fields))
}

func (f *Form) Prev() tea.Cmd {
	return f.focus((f.Focus - 1 + len(f.Fields)) % len(f.Fields))
}

// OnLast reports whether the last field has focus.
func (f *Form) OnLast() bool {
	return f.Focus == len(f.Fields)-1
}

// Update routes a key to the focused field.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	fl := &f.Fields[f.Focus]
	if len(fl.Options) > 0 {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "left", "h":
				fl.Choice = (fl.Choice - 1 + len(fl.Options)) % len(fl.Options)
			case "right", "l", " ":
				fl.Choice = (fl.Choice + 1) % len(fl.Options)
			}
		}
		return nil
	}

	var cmd tea.Cmd
	fl.Input, cmd = fl.Input.Update(msg)
	return cmd
}

func (f *Form) View() string {
	var b strings.Builder
	if f.Title != "" {
		b.WriteString(ui.HeaderStyle.Render(f.Title) + "\n\n")
	}
	for i, fl := range f.Fields {
		label := fmt.Sprintf("%-14s", fl.Label)
		if i == f.Focus {
			label = ui.SelectedStyle.Render(label)
		} else {
			label = ui.MutedStyle.Render(label)
		}

		value := fl.Input.View()
		if len(fl.Options) > 0 {
			value = "‹ " + fl.Options[fl.Choice] + " ›"
			if i == f.Focus {
				value = ui.InputStyle.Render(value)
			}
		}
		b.WriteString(label + " " + value + "\n")
	}
	if f.Error != "" {
		b.WriteString("\n" + ui.NegativeStyle.Render("❌ "+f.Error) + "\n")
	}
	return b.String()
}

// Auth form field order.
const (
	loginEmail = iota
	loginPassword
)

const (
	regFirstName = iota
	regLastName
	regEmail
	regPassword
)

func newLoginForm() *Form {
	return NewForm("Sign In", "Email", "Password").Masked(loginPassword)
}

func newRegisterForm() *Form {
	return NewForm("Create Account", "First name", "Last name", "Email", "Password").Masked(regPassword)
}

// Portfolio form fields.
const (
	pfQuantity = iota
	pfPrice
)

func newPortfolioForm(symbol string, qty, price float64, editing bool) *Form {
	title := "Add to Portfolio"
	if editing {
		title = "Edit Portfolio"
	}
	return NewForm(title+" · "+symbol, "Quantity", "Avg price").
		Set(pfQuantity, strconv.FormatFloat(qty, 'f', -1, 64)).
		Set(pfPrice, strconv.FormatFloat(price, 'f', -1, 64))
}

// Alert form fields.
const (
	alSymbol = iota
	alEntry
	alStop
	alTarget
	alRationale
)

func newAlertForm(cur string) *Form {
	return NewForm("New Stock Alert",
		"Symbol",
		"Entry "+cur,
		"Stop loss "+cur,
		"Target "+cur,
		"Rationale",
	)
}

// Feedback form fields.
const (
	fbType = iota
	fbMessage
)

var feedbackTypes = []string{"general", "bug", "feature", "other"}

func newFeedbackForm() *Form {
	return NewForm("Send Feedback", "Type", "Message").
		WithOptions(fbType, feedbackTypes...).
		focusAt(fbMessage)
}

func (f *Form) focusAt(i int) *Form {
	f.focus(i)
	return f
}
