// Package prompt reads line and secret input from the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal reads answers from an input stream, masking secrets when the
// stream is an interactive terminal.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	// isTerminal is swapped in tests.
	isTerminal func(fd int) bool
	readSecret func(fd int) ([]byte, error)
}

// NewTerminal binds a Terminal to stdin and out.
func NewTerminal(out io.Writer) *Terminal {
	return newTerminal(os.Stdin, int(os.Stdin.Fd()), out)
}

// NewReader returns a Terminal that never masks input; used when stdin is
// not a terminal.
func NewReader(in io.Reader, out io.Writer) *Terminal {
	t := newTerminal(in, -1, out)
	t.isTerminal = func(int) bool { return false }
	return t
}

func newTerminal(in io.Reader, fd int, out io.Writer) *Terminal {
	return &Terminal{
		in:         bufio.NewReader(in),
		out:        out,
		fd:         fd,
		isTerminal: term.IsTerminal,
		readSecret: term.ReadPassword,
	}
}

// WithOutput returns a Terminal that prints prompts to out and shares t's
// input buffer, so input read ahead by one is not lost to the other.
func (t *Terminal) WithOutput(out io.Writer) *Terminal {
	c := *t
	c.out = out
	return &c
}

// ReadLine prints prompt and returns the next line without its line ending.
// io.EOF is returned only when no input at all was read.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)

	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret prints prompt and reads a line without echo when possible.
func (t *Terminal) ReadSecret(prompt string) (string, error) {
	if !t.isTerminal(t.fd) {
		line, err := t.ReadLine(prompt)
		return strings.TrimSpace(line), err
	}

	fmt.Fprint(t.out, prompt)
	secret, err := t.readSecret(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}
