package identity

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// UnknownIdentityError reports an author handle that could not be
// resolved to a local user. It aborts the whole import; nothing is
// committed.
type UnknownIdentityError struct {
	Handle string
}

func (e *UnknownIdentityError) Error() string {
	return fmt.Sprintf("unrecognized external identity %q", e.Handle)
}

// Prompter supplies a manual user mapping for handles the resolver
// cannot match on its own. Which implementation is wired in is a
// configuration decision, not a branch inside the resolver.
type Prompter interface {
	// ResolveHandle returns a local user id or username for handle.
	ResolveHandle(handle string) (string, error)
}

// FailClosedPrompter rejects every unknown handle. Batch and worker
// runs use it so unattended imports abort instead of minting
// identities blindly.
type FailClosedPrompter struct{}

func (FailClosedPrompter) ResolveHandle(handle string) (string, error) {
	return "", &UnknownIdentityError{Handle: handle}
}

// TerminalPrompter asks for a mapping synchronously on the terminal.
// One buffered reader persists across prompts so input typed ahead of
// a later unknown handle is not discarded.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter() *TerminalPrompter {
	return newTerminalPrompter(os.Stdin, os.Stdout)
}

func newTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) ResolveHandle(handle string) (string, error) {
	fmt.Fprintf(p.out, "Unknown external handle %q. Enter a local user id or username (empty to abort): ", handle)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read mapping for %q: %w", handle, err)
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", &UnknownIdentityError{Handle: handle}
	}
	return answer, nil
}
