package ux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrNoInput is returned when the prompt input is closed before an answer.
var ErrNoInput = errors.New("no input available")

// Prompter asks the user questions.
type Prompter interface {
	// Confirm asks a yes/no question; an empty answer selects def.
	Confirm(ctx context.Context, question string, def bool) (bool, error)

	// Secret asks for a value without echoing it.
	Secret(ctx context.Context, question string) (string, error)
}

// NewPrompter returns a huh-based prompter when stdin and stdout are
// terminals, and a line-based prompter otherwise.
func NewPrompter() Prompter {
	if IsTerminal(os.Stdin) && IsTerminal(os.Stdout) {
		return &HuhPrompter{}
	}
	return NewReaderPrompter(os.Stdin, os.Stderr)
}

// HuhPrompter renders interactive forms on a terminal.
type HuhPrompter struct{}

// Confirm implements Prompter.
func (p *HuhPrompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	answer := def
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)
	err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return answer, nil
}

// Secret implements Prompter.
func (p *HuhPrompter) Secret(ctx context.Context, question string) (string, error) {
	var value string
	field := huh.NewInput().
		Title(question).
		EchoMode(huh.EchoModePassword).
		Value(&value)
	err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// ReaderPrompter reads answers line by line. It is used for piped input and tests.
type ReaderPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewReaderPrompter creates a prompter over in and out.
func NewReaderPrompter(in io.Reader, out io.Writer) *ReaderPrompter {
	return &ReaderPrompter{in: bufio.NewReader(in), out: out}
}

// Confirm implements Prompter.
func (p *ReaderPrompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(p.out, "%s %s ", question, hint)

	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized answer %q", line)
	}
}

// Secret implements Prompter.
func (p *ReaderPrompter) Secret(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s ", question)
	return p.readLine(ctx)
}

func (p *ReaderPrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
