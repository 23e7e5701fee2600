package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// passphraseEnv supplies the passphrase for unattended pulls.
const passphraseEnv = "PSTALKER_PASSPHRASE"

// readLine reads one line from in. Secret input on a terminal is not echoed.
func readLine(in io.Reader, out io.Writer, prompt string, secret bool) (string, error) {
	fmt.Fprint(out, prompt)

	if f, ok := in.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readPassphrase(in io.Reader, out io.Writer, prompt string) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	return readLine(in, out, prompt, true)
}

// readNewPassphrase asks twice and requires both entries to match.
func readNewPassphrase(in io.Reader, out io.Writer) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}

	// One reader for both lines so buffered input is not lost between them.
	br := bufio.NewReader(in)
	var src io.Reader = br
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		src = f
	}

	first, err := readLine(src, out, "New passphrase: ", true)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("passphrase must not be empty")
	}
	second, err := readLine(src, out, "Repeat passphrase: ", true)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	answer, err := readLine(in, out, question+" [y/N] ", false)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
