// Package checks runs the named pre-deployment checks and post-deployment actions of an
// environment.
package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitship/gitship/internal/logging"
)

var (
	ErrUnknownCheck  = errors.New("unknown check")
	ErrUnknownAction = errors.New("unknown action")
)

// Target describes the deployment a step runs for. Steps receive it as environment
// variables (commands) or as the request body (webhooks).
type Target struct {
	Project     string
	Environment string
	Branch      string
	// Revision is the revision being deployed. Previous is the one it replaces.
	Revision   string
	Previous   string
	Repository string
}

// Step is a single check or action. A nil error means the step passed.
type Step interface {
	Run(ctx context.Context, target Target) error
}

// StepFunc adapts a plain function to Step.
type StepFunc func(ctx context.Context, target Target) error

func (f StepFunc) Run(ctx context.Context, target Target) error { return f(ctx, target) }

// CheckReport is the result of RunChecks. When Passed is false, FailedID names the check
// that stopped the run and Err holds its cause.
type CheckReport struct {
	Passed   bool
	FailedID string
	Err      error
	Ran      []string
}

type ActionResult struct {
	ID       string
	Err      error
	Duration time.Duration
}

func (r ActionResult) Succeeded() bool { return r.Err == nil }

// Runner resolves step ids against its registered checks and actions.
type Runner struct {
	checks  map[string]Step
	actions map[string]Step
	logger  *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		checks:  make(map[string]Step),
		actions: make(map[string]Step),
		logger:  logger,
	}
}

func (r *Runner) RegisterCheck(id string, step Step) {
	r.checks[id] = step
}

func (r *Runner) RegisterAction(id string, step Step) {
	r.actions[id] = step
}

// RunChecks runs the checks in order and stops at the first failure. An id with no
// registered check fails with ErrUnknownCheck. An empty list passes.
func (r *Runner) RunChecks(ctx context.Context, ids []string, target Target) CheckReport {
	report := CheckReport{Passed: true}
	for _, id := range ids {
		report.Ran = append(report.Ran, id)

		step, ok := r.checks[id]
		if !ok {
			return r.fail(report, id, fmt.Errorf("%w: '%s'", ErrUnknownCheck, id), target)
		}

		start := time.Now()
		if err := step.Run(ctx, target); err != nil {
			return r.fail(report, id, err, target)
		}
		r.logger.Debug("check passed",
			logging.AttrEnvironment, target.Environment,
			logging.AttrCheck, id,
			"duration", time.Since(start))
	}
	return report
}

func (r *Runner) fail(report CheckReport, id string, err error, target Target) CheckReport {
	r.logger.Warn("check failed",
		logging.AttrEnvironment, target.Environment,
		logging.AttrCheck, id,
		"error", err)
	report.Passed = false
	report.FailedID = id
	report.Err = err
	return report
}

// RunActions runs every action in order regardless of earlier failures and returns one
// result per id.
func (r *Runner) RunActions(ctx context.Context, ids []string, target Target) []ActionResult {
	results := make([]ActionResult, 0, len(ids))
	for _, id := range ids {
		step, ok := r.actions[id]
		if !ok {
			err := fmt.Errorf("%w: '%s'", ErrUnknownAction, id)
			r.logger.Warn("action failed", logging.AttrEnvironment, target.Environment, logging.AttrAction, id, "error", err)
			results = append(results, ActionResult{ID: id, Err: err})
			continue
		}

		start := time.Now()
		err := step.Run(ctx, target)
		result := ActionResult{ID: id, Err: err, Duration: time.Since(start)}
		if err != nil {
			r.logger.Warn("action failed", logging.AttrEnvironment, target.Environment, logging.AttrAction, id, "error", err)
		} else {
			r.logger.Info("action completed", logging.AttrEnvironment, target.Environment, logging.AttrAction, id)
		}
		results = append(results, result)
	}
	return results
}
