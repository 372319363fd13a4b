// Package prompt asks yes/no questions before publishing.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when a terminal prompt has no terminal to read from.
var ErrNotInteractive = errors.New("stdin is not a terminal; use --no-prompt")

// Confirmer answers a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Static answers every question with the same value.
type Static bool

// Confirm returns the static answer.
func (s Static) Confirm(context.Context, string) (bool, error) { return bool(s), nil }

// Terminal reads answers from In, writing questions to Out. Only y, Y and yes confirm.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// IsTerminal reports whether In is interactive. Defaults to checking os.Stdin.
	IsTerminal func() bool

	mu      sync.Mutex
	reader  *bufio.Reader
	pending chan answer
}

type answer struct {
	line string
	err  error
}

// NewTerminal returns a prompt on the process's stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{
		In:         os.Stdin,
		Out:        os.Stderr,
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Confirm prints message and waits for one line of input. A read left pending by a
// cancelled context is not restarted; its line answers the next question.
func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	if t.IsTerminal != nil && !t.IsTerminal() {
		return false, ErrNotInteractive
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}

	if _, err := fmt.Fprintf(t.Out, "%s ", message); err != nil {
		return false, err
	}

	if t.pending == nil {
		ch := make(chan answer, 1)
		r := t.reader
		go func() {
			line, err := r.ReadString('\n')
			ch <- answer{line, err}
		}()
		t.pending = ch
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-t.pending:
		t.pending = nil
		if a.err != nil && !(errors.Is(a.err, io.EOF) && a.line != "") {
			return false, fmt.Errorf("did not confirm: %w", a.err)
		}
		switch strings.TrimSpace(a.line) {
		case "y", "Y", "yes":
			return true, nil
		}
		return false, nil
	}
}
