// Package terminal renders command output, styled when writing to a terminal
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/llmgit/internal/config"
)

// Printer writes headings, diffs and model output to w
type Printer struct {
	w         io.Writer
	highlight bool

	heading lipgloss.Style
	name    lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
	dim     lipgloss.Style
}

// NewPrinter creates a printer honouring the terminal settings. Styles are
// dropped when w is not a terminal or highlighting is disabled.
func NewPrinter(w io.Writer, s config.TerminalSettings) *Printer {
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:         w,
		highlight: s.Highlight && s.ColorSystem != "none" && s.ColorSystem != "never",
	}
	p.heading = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#50C878"))
	p.name = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	p.added = r.NewStyle().Foreground(lipgloss.Color("#50C878"))
	p.removed = r.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	p.hunk = r.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	p.dim = r.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	if s.Width > 0 {
		p.dim = p.dim.Width(s.Width)
	}
	return p
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.highlight {
		return text
	}
	return s.Render(text)
}

// Heading prints a section title
func (p *Printer) Heading(title string) {
	fmt.Fprintln(p.w, p.style(p.heading, title))
}

// Name prints the name of an item in a listing
func (p *Printer) Name(name string) {
	fmt.Fprintln(p.w, p.style(p.name, name))
}

// Text prints text as is, making sure it ends with a newline
func (p *Printer) Text(text string) {
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	fmt.Fprint(p.w, text)
}

// Note prints secondary information
func (p *Printer) Note(text string) {
	fmt.Fprintln(p.w, p.style(p.dim, text))
}

// Diff prints unified diff output with added and removed lines coloured
func (p *Printer) Diff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = p.style(p.heading, line)
		case strings.HasPrefix(line, "+"):
			line = p.style(p.added, line)
		case strings.HasPrefix(line, "-"):
			line = p.style(p.removed, line)
		case strings.HasPrefix(line, "@@"):
			line = p.style(p.hunk, line)
		}
		fmt.Fprintln(p.w, line)
	}
}
