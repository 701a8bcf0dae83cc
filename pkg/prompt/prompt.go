// Package prompt reads credentials interactively. Secrets are read without
// echo when standard input is a terminal; otherwise input degrades to plain
// line reads so piped input and tests keep working.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// Prompter reads interactive input from one stream and writes prompts to
// another.
type Prompter struct {
	reader *bufio.Reader
	file   *os.File
	out    io.Writer
}

// New creates a prompter on standard input and output.
func New() *Prompter {
	return &Prompter{
		reader: bufio.NewReader(os.Stdin),
		file:   os.Stdin,
		out:    os.Stdout,
	}
}

// NewWithStreams creates a prompter on arbitrary streams, for scripted input.
func NewWithStreams(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{reader: bufio.NewReader(in), out: out}
	if file, ok := in.(*os.File); ok {
		p.file = file
	}

	return p
}

// Line reads one line of input after printing a label.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label+": ")

	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// Secret reads one line without echoing it back when the input is a terminal.
func (p *Prompter) Secret(label string) (string, error) {
	if p.file == nil || !term.IsTerminal(int(p.file.Fd())) {
		return p.Line(label)
	}

	fmt.Fprint(p.out, label+": ")

	raw, err := term.ReadPassword(int(p.file.Fd()))

	fmt.Fprintln(p.out)

	if err != nil {
		return "", fmt.Errorf("reading secret input: %w", err)
	}

	return string(raw), nil
}

// Credentials assembles login credentials, prompting only for the parts not
// already supplied. With twoFactor set the result carries a one-time code,
// prompted for unless code is already given.
func (p *Prompter) Credentials(username, password, code string, twoFactor bool) (teatime.Credentials, error) {
	var err error

	if username == "" {
		username, err = p.Line("Username")
		if err != nil {
			return nil, err
		}
	}

	if username == "" {
		return nil, constants.ErrUsernameRequired
	}

	if password == "" {
		password, err = p.Secret("Password")
		if err != nil {
			return nil, err
		}
	}

	if password == "" {
		return nil, constants.ErrPasswordRequired
	}

	if !twoFactor {
		return teatime.UserPass{Username: username, Password: password}, nil
	}

	if code == "" {
		code, err = p.Line("One-time code")
		if err != nil {
			return nil, err
		}
	}

	return teatime.UserPassTwoFactor{Username: username, Password: password, OneTimeCode: code}, nil
}
