package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

// Theme holds the colors used by TerminalView.
type Theme struct {
	Accent    lipgloss.Color
	Error     lipgloss.Color
	FaintText lipgloss.Color
}

// DefaultTheme uses ANSI 256 colors.
var DefaultTheme = Theme{
	Accent:    lipgloss.Color("86"),
	Error:     lipgloss.Color("203"),
	FaintText: lipgloss.Color("245"),
}

// TerminalView renders the console to a terminal.
type TerminalView struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	theme Theme
}

// NewTerminalView writes to out, wrapping message bodies at width columns.
func NewTerminalView(out io.Writer, width int) *TerminalView {
	if width <= 0 {
		width = 80
	}
	return &TerminalView{out: out, width: width, theme: DefaultTheme}
}

func (v *TerminalView) println(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, s)
}

func (v *TerminalView) ShowLogin() {
	title := lipgloss.NewStyle().Bold(true).Foreground(v.theme.Accent)
	v.println(title.Render("Operator sign-in"))
}

func (v *TerminalView) SetSubmitting(submitting bool) {
	if submitting {
		v.println(lipgloss.NewStyle().Foreground(v.theme.FaintText).Render("Authenticating..."))
	}
}

func (v *TerminalView) ShowLoginError(text string) {
	v.println(lipgloss.NewStyle().Foreground(v.theme.Error).Render(text))
}

func (v *TerminalView) ShowMessages(username string, messages []contact.Message) {
	var b strings.Builder
	b.WriteString(v.header(username, len(messages)))
	for _, msg := range messages {
		b.WriteString("\n")
		b.WriteString(v.card(msg))
	}
	v.println(b.String())
}

func (v *TerminalView) ShowEmpty(username, text string) {
	v.println(v.header(username, 0) + "\n" + text)
}

func (v *TerminalView) ShowFetchError(text string) {
	v.println(lipgloss.NewStyle().Foreground(v.theme.Error).Render(text))
}

func (v *TerminalView) ShowLive(msg contact.Message) {
	badge := lipgloss.NewStyle().Bold(true).Foreground(v.theme.Accent).Render("new")
	v.println(badge + "\n" + v.card(msg))
}

func (v *TerminalView) Reset() {
	v.println(lipgloss.NewStyle().Foreground(v.theme.FaintText).Render("Signed out."))
}

func (v *TerminalView) header(username string, count int) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(v.theme.Accent)
	return style.Render(fmt.Sprintf("Inbox for %s (%d)", username, count))
}

// card renders one message. Fields are printed as plain text; lipgloss does
// not interpret markup in them.
func (v *TerminalView) card(msg contact.Message) string {
	meta := lipgloss.NewStyle().Foreground(v.theme.FaintText)
	from := fmt.Sprintf("From: %s <%s>", msg.Name, msg.Email)
	when := msg.CreatedAt.Local().Format(time.DateTime)
	if msg.Category != "" {
		when += "  [" + msg.Category + "]"
	}

	body := lipgloss.NewStyle().
		Width(v.width - 4).
		PaddingLeft(2).
		Render(stripControl(msg.Message))

	box := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(v.theme.FaintText).
		PaddingLeft(1)
	return box.Render(stripControl(from) + "\n" + meta.Render(when) + "\n" + body)
}

// stripControl drops terminal control characters from untrusted text so a
// submission cannot inject escape sequences into the operator's terminal.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}
