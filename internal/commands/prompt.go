package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads credentials from the command's input. On a terminal the
// password is read without echo; otherwise each value is one line.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	if in == nil {
		in = strings.NewReader("")
	}
	return &prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

// terminalFd returns the file descriptor of in when it is a terminal.
func (p *prompter) terminalFd() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (p *prompter) line(label string) (string, error) {
	if _, tty := p.terminalFd(); tty {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	s, err := p.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && s != "" {
		err = nil
	}
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("no %s on input", label)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) password() (string, error) {
	fd, tty := p.terminalFd()
	if !tty {
		return p.line("password")
	}

	fmt.Fprint(p.out, "password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
