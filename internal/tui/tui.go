// Package tui renders menus, prompts and results. The pterm implementation is
// used on an interactive terminal; the line implementation reads plain lines
// and serves pipes, scripts and tests.
package tui

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// ErrAborted is returned by prompts when input ends or the user interrupts.
var ErrAborted = errors.New("input aborted")

type Prompter interface {
	// Select returns the index of the chosen option.
	Select(title string, options []string) (int, error)
	Input(prompt string) (string, error)
	Confirm(prompt string, defaultYes bool) (bool, error)
}

// Pending is an indicator shown while a transaction is being confirmed.
type Pending interface {
	Succeed(msg string)
	Fail(msg string)
}

type Reporter interface {
	Header(title string)
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Failure(msg string)
	Table(header []string, rows [][]string)
	Pending(msg string) Pending
}

type UI interface {
	Prompter
	Reporter
}

// New picks the pterm UI when both ends are terminals.
func New(in, out *os.File) UI {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewPtermUI()
	}
	return NewLineUI(in, out)
}

