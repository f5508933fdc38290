package app

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ErrNoPassphrase is returned when a passphrase is needed but neither the
// environment nor an interactive terminal can provide one.
var ErrNoPassphrase = errors.New("passphrase required: set GDSYNC_PASSPHRASE or run from a terminal")

// ReadPassphrase returns fromEnv if set, otherwise prompts on the terminal
// without echo. When confirm is set the passphrase must be entered twice.
func ReadPassphrase(fromEnv, prompt string, confirm bool) (string, error) {
	if fromEnv != "" {
		return fromEnv, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassphrase
	}

	first, err := readHidden(fd, prompt)
	if err != nil {
		return "", err
	}
	if !confirm {
		return first, nil
	}

	second, err := readHidden(fd, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

func readHidden(fd int, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
