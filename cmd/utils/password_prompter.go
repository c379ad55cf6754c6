package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrEmptyPassphrase = errors.New("the leak encryption passphrase cannot be empty")

// PasswordPrompter asks for a secret without echoing it.
type PasswordPrompter interface {
	Run() (string, error)
}

type defaultPasswordPrompter struct {
	inputLabelText string
	stdin          *os.File
	stdout         io.Writer
	readPassword   func(fd int) ([]byte, error)
}

var _ PasswordPrompter = (*defaultPasswordPrompter)(nil)

// Run prints the label, reads one line from the terminal and rejects an empty answer. Surrounding
// whitespace is dropped.
func (pp *defaultPasswordPrompter) Run() (string, error) {
	if _, err := fmt.Fprint(pp.stdout, pp.inputLabelText, " "); err != nil {
		return "", fmt.Errorf("writing passphrase prompt: %w", err)
	}

	input, err := pp.readPassword(int(pp.stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("reading passphrase from the terminal: %w", err)
	}
	if _, err = fmt.Fprintln(pp.stdout); err != nil {
		return "", fmt.Errorf("writing newline after the passphrase prompt: %w", err)
	}

	passphrase := strings.TrimSpace(string(input))
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	return passphrase, nil
}

// NewDefaultPasswordPrompter prompts on stdout and reads the hidden answer from the terminal
// attached to stdin.
func NewDefaultPasswordPrompter(inputLabelText string, stdin *os.File, stdout io.Writer) (*defaultPasswordPrompter, error) {
	if stdin == nil {
		return nil, fmt.Errorf("stdin cannot be nil")
	}
	if stdout == nil {
		return nil, fmt.Errorf("stdout cannot be nil")
	}

	inputLabelText = strings.TrimSpace(inputLabelText)
	if inputLabelText == "" {
		return nil, fmt.Errorf("prompt label cannot be empty")
	}

	return &defaultPasswordPrompter{
		inputLabelText: inputLabelText,
		stdin:          stdin,
		stdout:         stdout,
		readPassword:   term.ReadPassword,
	}, nil
}
