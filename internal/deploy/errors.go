package deploy

import "errors"

var (
	// ErrNoPriorRevision is returned by Rollback when no previous revision is recorded.
	ErrNoPriorRevision = errors.New("no prior revision to roll back to")
	// ErrRollbackFailed is wrapped by Outcome.RollbackCause when the compensating rollback
	// itself failed.
	ErrRollbackFailed = errors.New("rollback failed")
	// ErrInconsistentState is returned for deploy and rollback requests on an environment
	// whose last rollback failed. Resolve clears it.
	ErrInconsistentState = errors.New("environment is in an inconsistent state")
)
