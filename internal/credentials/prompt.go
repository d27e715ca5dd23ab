package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalReader reads a secret without echoing it
type TerminalReader interface {
	ReadPassword() (string, error)
}

type stdinTerminal struct {
	fd int
}

func (t stdinTerminal) ReadPassword() (string, error) {
	b, err := term.ReadPassword(t.fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StdinTerminal returns a TerminalReader when stdin is a TTY, nil otherwise
func StdinTerminal() TerminalReader {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return stdinTerminal{fd: fd}
}

// PromptToken prompts for the session token, reading a line from reader
func PromptToken(reader io.Reader, writer io.Writer) (string, error) {
	return PromptTokenWithTTY(reader, writer, nil)
}

// PromptTokenWithTTY prompts for the session token using tty for hidden input.
// Without a terminal it falls back to reading a line from reader (piped input).
func PromptTokenWithTTY(reader io.Reader, writer io.Writer, tty TerminalReader) (string, error) {
	_, _ = fmt.Fprint(writer, "Enter Laftel session token (cookie at_amss-Co): ")

	if tty != nil {
		token, err := tty.ReadPassword()
		_, _ = fmt.Fprintln(writer)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(token), nil
	}

	if reader == nil {
		return "", errors.New("no input available")
	}
	scanner := bufio.NewScanner(reader)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no input received")
}
