package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// printer writes answers, rendering markdown when stdout is a terminal.
type printer struct {
	out      io.Writer
	render   func(string) (string, error)
	profile  termenv.Profile
	colorful bool
}

func newPrinter(raw bool) *printer {
	p := &printer{out: os.Stdout, profile: termenv.Ascii}
	if raw || !term.IsTerminal(int(os.Stdout.Fd())) {
		return p
	}
	p.colorful = true
	p.profile = termenv.ColorProfile()

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w - 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		p.render = r.Render
	}
	return p
}

func (p *printer) label(name, color string) string {
	return termenv.String(name).Foreground(p.profile.Color(color)).Bold().String()
}

// Prompt prints the user prompt without a newline.
func (p *printer) Prompt() {
	fmt.Fprint(p.out, p.label("You", "#60a5fa")+": ")
}

// Answer prints the model's answer; nil prints a placeholder.
func (p *printer) Answer(answer *string, labeled bool) {
	text := "(no content produced)"
	if answer != nil {
		text = *answer
	}
	if p.render != nil {
		if rendered, err := p.render(text); err == nil {
			text = strings.Trim(rendered, "\n")
		}
	}
	if labeled {
		fmt.Fprintf(p.out, "%s:\n%s\n", p.label("Agent", "#facc15"), text)
		return
	}
	fmt.Fprintln(p.out, text)
}

// Note prints a dimmed status line, e.g. the tool used.
func (p *printer) Note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.colorful {
		msg = termenv.String(msg).Faint().String()
	}
	fmt.Fprintln(p.out, msg)
}
