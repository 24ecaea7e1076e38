// Package ux renders user-facing terminal output: styled status lines, a
// progress spinner and yes/no prompts.
package ux

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors
var (
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A89")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}{
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
	Error:     lipgloss.NewStyle().Foreground(ColorError).Bold(true),
	Highlight: lipgloss.NewStyle().Foreground(ColorSuccess),
}

// Printer writes styled lines to one writer.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Echo prints the arguments space separated, like fmt.Println.
func (p *Printer) Echo(args ...interface{}) {
	fmt.Fprintln(p.w, args...)
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	fmt.Fprintln(p.w, Styles.Success.Render("✓")+" "+text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	fmt.Fprintln(p.w, Styles.Warning.Render("!")+" "+text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	fmt.Fprintln(p.w, Styles.Error.Render("✗")+" "+text)
}

// Emphasize renders a value in bold.
func Emphasize(v interface{}) string {
	return Styles.Bold.Render(fmt.Sprint(v))
}
