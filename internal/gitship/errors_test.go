package gitship

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/registry"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitError},
		{"unknown environment", fmt.Errorf("%w: 'qa'", registry.ErrUnknownEnvironment), ExitError},
		{"inconsistent", fmt.Errorf("%w: environment 'prod'", deploy.ErrInconsistentState), ExitInconsistent},
		{"aborted by check", &OutcomeError{Outcome: deploy.Outcome{Kind: deploy.OutcomeAbortedByCheck}}, ExitError},
		{"rolled back", &OutcomeError{Outcome: deploy.Outcome{Kind: deploy.OutcomeFailedAndRolledBack}}, ExitError},
		{"rollback also failed", &OutcomeError{Outcome: deploy.Outcome{Kind: deploy.OutcomeFailedRollbackAlsoFailed}}, ExitInconsistent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOutcomeError_Unwrap(t *testing.T) {
	cause := errors.New("push rejected")
	rollbackCause := fmt.Errorf("%w: checkout failed", deploy.ErrRollbackFailed)

	err := &OutcomeError{Outcome: deploy.Outcome{Kind: deploy.OutcomeFailed, Cause: cause}}
	if !errors.Is(err, cause) {
		t.Error("expected OutcomeError to unwrap to the cause")
	}

	err = &OutcomeError{Outcome: deploy.Outcome{Kind: deploy.OutcomeFailedRollbackAlsoFailed, Cause: cause, RollbackCause: rollbackCause}}
	if !errors.Is(err, deploy.ErrRollbackFailed) {
		t.Error("expected OutcomeError to unwrap to the rollback cause")
	}
}
