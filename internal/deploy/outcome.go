package deploy

import (
	"fmt"
	"time"

	"github.com/gitship/gitship/internal/checks"
)

// OutcomeKind classifies how a deploy or rollback request ended.
type OutcomeKind string

const (
	OutcomeSucceeded      OutcomeKind = "succeeded"
	OutcomeAbortedByCheck OutcomeKind = "aborted-by-check"
	// OutcomeFailed is a failure that left nothing to roll back, or one in an environment
	// with automatic rollback disabled.
	OutcomeFailed                   OutcomeKind = "failed"
	OutcomeFailedAndRolledBack      OutcomeKind = "failed-and-rolled-back"
	OutcomeFailedRollbackAlsoFailed OutcomeKind = "failed-rollback-also-failed"
	OutcomeRolledBack               OutcomeKind = "rolled-back"
	// OutcomeResolved marks an operator setting the current revision by hand.
	OutcomeResolved OutcomeKind = "resolved"
)

// Escalated reports whether the outcome left the environment in an unknown state.
func (k OutcomeKind) Escalated() bool {
	return k == OutcomeFailedRollbackAlsoFailed
}

// Request is the kind of operation an outcome belongs to.
type Request string

const (
	RequestDeploy   Request = "deploy"
	RequestRollback Request = "rollback"
	RequestResolve  Request = "resolve"
)

// Step names the adapter operation a failure happened in.
type Step string

const (
	StepStatus     Step = "status"
	StepAutoCommit Step = "auto-commit"
	StepFetch      Step = "fetch"
	StepStash      Step = "stash"
	StepCheckout   Step = "checkout"
	StepPull       Step = "pull"
	StepPush       Step = "push"
	// StepRollback covers every adapter call of the rollback path.
	StepRollback Step = "rollback"
)

// Outcome is the result of a deploy or rollback request. Business failures are reported
// here with a nil error from Deploy and Rollback.
type Outcome struct {
	ID          string
	Request     Request
	Kind        OutcomeKind
	Environment string
	// Target is the revision the request tried to make current.
	Target string
	// From and To are the current revision before and after the request.
	From string
	To   string
	// Previous is the rollback target left recorded after the request.
	Previous string

	FailedCheck   string
	FailedStep    Step
	Cause         error
	RollbackCause error

	// AutoCommit is the commit message used when a dirty working tree was committed
	// before the deployment.
	AutoCommit string
	Actions    []checks.ActionResult

	StartedAt  time.Time
	FinishedAt time.Time
}

func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Summary is a one-line human description of the outcome.
func (o Outcome) Summary() string {
	switch o.Kind {
	case OutcomeSucceeded:
		return fmt.Sprintf("deployed %s to %s", o.To, o.Environment)
	case OutcomeAbortedByCheck:
		return fmt.Sprintf("check '%s' failed: %v", o.FailedCheck, o.Cause)
	case OutcomeFailed:
		return fmt.Sprintf("%s failed: %v", o.FailedStep, o.Cause)
	case OutcomeFailedAndRolledBack:
		return fmt.Sprintf("%s failed: %v; rolled back to %s", o.FailedStep, o.Cause, o.To)
	case OutcomeFailedRollbackAlsoFailed:
		if o.Cause == nil {
			return fmt.Sprintf("rollback failed: %v; environment is inconsistent", o.RollbackCause)
		}
		return fmt.Sprintf("%s failed: %v; rollback failed: %v; environment is inconsistent", o.FailedStep, o.Cause, o.RollbackCause)
	case OutcomeRolledBack:
		return fmt.Sprintf("rolled back %s from %s to %s", o.Environment, o.From, o.To)
	case OutcomeResolved:
		return fmt.Sprintf("resolved %s at %s", o.Environment, o.To)
	default:
		return string(o.Kind)
	}
}

// FailedActions returns the post-deployment actions that did not succeed.
func (o Outcome) FailedActions() []checks.ActionResult {
	var failed []checks.ActionResult
	for _, a := range o.Actions {
		if !a.Succeeded() {
			failed = append(failed, a)
		}
	}
	return failed
}
