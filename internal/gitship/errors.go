package gitship

import (
	"errors"

	"github.com/gitship/gitship/internal/deploy"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	// ExitInconsistent means an environment needs 'gitship resolve' before it can be
	// deployed again.
	ExitInconsistent = 2
)

// OutcomeError turns a failed deploy or rollback outcome into a command error so the
// process exits non-zero.
type OutcomeError struct {
	Outcome deploy.Outcome
}

func (e *OutcomeError) Error() string {
	return e.Outcome.Summary()
}

func (e *OutcomeError) Unwrap() error {
	if e.Outcome.RollbackCause != nil {
		return e.Outcome.RollbackCause
	}
	return e.Outcome.Cause
}

func getExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var outcomeErr *OutcomeError
	if errors.As(err, &outcomeErr) && outcomeErr.Outcome.Kind.Escalated() {
		return ExitInconsistent
	}
	if errors.Is(err, deploy.ErrInconsistentState) {
		return ExitInconsistent
	}
	return ExitError
}
