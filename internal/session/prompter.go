package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter supplies interactive credentials during a login attempt.
// Implementations may block indefinitely waiting for a human; the
// single-flight login gate makes every concurrent caller share that
// wait.
type Prompter interface {
	// Credentials asks for the account name and password.
	Credentials(ctx context.Context) (accountName, password string, err error)

	// GuardCode asks for a second-factor verification code. domain
	// names the delivery mechanism ("email", "device"); lastCodeWrong
	// is set when re-prompting after a rejected code.
	GuardCode(ctx context.Context, domain string, lastCodeWrong bool) (code string, err error)
}

// TerminalPrompter reads credentials from an interactive terminal.
// Passwords are read without echo when stdin is a terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter builds a prompter over stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
	}
}

func (p *TerminalPrompter) Credentials(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	fmt.Fprint(p.out, "Steam account name: ")
	account, err := p.readLine()
	if err != nil {
		return "", "", fmt.Errorf("reading account name: %w", err)
	}

	fmt.Fprint(p.out, "Password: ")
	password, err := p.readSecret()
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprintln(p.out)

	return account, password, nil
}

func (p *TerminalPrompter) GuardCode(ctx context.Context, domain string, lastCodeWrong bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if lastCodeWrong {
		fmt.Fprintln(p.out, "The code you entered was not accepted.")
	}
	if domain != "" {
		fmt.Fprintf(p.out, "Steam Guard code (%s): ", domain)
	} else {
		fmt.Fprint(p.out, "Steam Guard code: ")
	}

	code, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("reading guard code: %w", err)
	}
	return code, nil
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret suppresses echo when stdin is a real terminal, and falls
// back to a plain line read when it is not (pipes, tests).
func (p *TerminalPrompter) readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return p.readLine()
	}
	secret, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
