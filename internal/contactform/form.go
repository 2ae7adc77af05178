package contactform

import (
	"fmt"
	"io"
	"maps"

	"github.com/charmbracelet/lipgloss"
)

// TerminalForm is a Form backed by preset values, printing status lines.
type TerminalForm struct {
	values  map[string]string
	enabled bool
	out     io.Writer
}

// NewTerminalForm builds a form holding values.
func NewTerminalForm(values map[string]string, out io.Writer) *TerminalForm {
	return &TerminalForm{values: maps.Clone(values), enabled: true, out: out}
}

func (f *TerminalForm) Fields() map[string]string { return maps.Clone(f.values) }

func (f *TerminalForm) Enabled() bool { return f.enabled }

func (f *TerminalForm) SetEnabled(enabled bool) { f.enabled = enabled }

func (f *TerminalForm) SetStatus(text string, success bool) {
	if text == "" {
		return
	}
	color := lipgloss.Color("86")
	if !success {
		color = lipgloss.Color("203")
	}
	fmt.Fprintln(f.out, lipgloss.NewStyle().Foreground(color).Render(text))
}

func (f *TerminalForm) Reset() {
	for key := range f.values {
		f.values[key] = ""
	}
}
