package vcs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitship/gitship/internal/cmdexec"
)

// Error is the failure of a single version-control operation.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("%s: exit code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit code %d: %s", e.Command, e.ExitCode, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fromExec converts a process failure into an *Error. Any other error is wrapped as an
// *Error with exit code -1 so callers only ever see one failure type from an Adapter.
func fromExec(command string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *cmdexec.ExitError
	if errors.As(err, &exitErr) {
		return &Error{
			Command:  command,
			ExitCode: exitErr.ExitCode,
			Stderr:   strings.TrimSpace(exitErr.Stderr),
			Err:      exitErr.Err,
		}
	}
	return &Error{Command: command, ExitCode: -1, Err: err}
}
