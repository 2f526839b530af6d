// Package deploy implements the deployment state machine: pre-checks, staging, publishing,
// post-deployment actions and the compensating rollback.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitship/gitship/internal/checks"
	"github.com/gitship/gitship/internal/config"
	"github.com/gitship/gitship/internal/logging"
	"github.com/gitship/gitship/internal/registry"
	"github.com/gitship/gitship/internal/vcs"
)

const autoCommitLayout = "2006-01-02 15:04:05"

type Environments interface {
	Lookup(name string) (registry.EnvironmentSpec, error)
}

type CheckRunner interface {
	RunChecks(ctx context.Context, ids []string, target checks.Target) checks.CheckReport
	RunActions(ctx context.Context, ids []string, target checks.Target) []checks.ActionResult
}

// AdapterFactory returns the revision control adapter for an environment's working tree.
type AdapterFactory func(spec registry.EnvironmentSpec) vcs.Adapter

// Observer is told about finished requests and inconsistency changes. Used for metrics.
type Observer interface {
	DeploymentFinished(o Outcome)
	InconsistencyChanged(env string, inconsistent bool)
}

type Options struct {
	Project  string
	Store    StateStore
	Recorder Recorder
	Observer Observer
	Locker   RepoLocker
	Logger   *slog.Logger
	Now      func() time.Time
}

// Machine owns the deployment state of every environment it serves.
type Machine struct {
	envs     Environments
	runner   CheckRunner
	adapters AdapterFactory

	project  string
	store    StateStore
	recorder Recorder
	observer Observer
	locker   RepoLocker
	logger   *slog.Logger
	now      func() time.Time

	locks  *repoLocks
	phases *phaseTracker
}

func NewMachine(envs Environments, runner CheckRunner, adapters AdapterFactory, opts Options) *Machine {
	m := &Machine{
		envs:     envs,
		runner:   runner,
		adapters: adapters,
		project:  opts.Project,
		store:    opts.Store,
		recorder: opts.Recorder,
		observer: opts.Observer,
		locker:   opts.Locker,
		logger:   opts.Logger,
		now:      opts.Now,
		locks:    newRepoLocks(),
		phases:   newPhaseTracker(),
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// run carries one request through the machine.
type run struct {
	spec    registry.EnvironmentSpec
	adapter vcs.Adapter
	state   State
	outcome Outcome
	logger  *slog.Logger
}

// Deploy makes target the current revision of env. An empty target deploys the
// environment's branch. The returned error is reserved for rejected requests; every
// business result, including failures, is reported through the Outcome.
func (m *Machine) Deploy(ctx context.Context, env, target string) (Outcome, error) {
	r, release, err := m.begin(ctx, env, RequestDeploy, false)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	if target == "" {
		target = r.spec.Branch
	}
	r.outcome.Target = target
	r.logger = r.logger.With(logging.AttrTarget, target)
	r.logger.Info("deployment started", logging.AttrRevision, r.state.Current)

	m.deploy(ctx, r, target)
	return m.finish(ctx, r), nil
}

func (m *Machine) deploy(ctx context.Context, r *run, target string) {
	m.enter(r, PhasePreChecking)

	dirty, err := r.adapter.WorkingTreeDirty(ctx)
	if err != nil {
		m.failed(r, StepStatus, err)
		return
	}
	if dirty {
		message := "Auto-commit before deployment on " + m.now().Format(autoCommitLayout)
		r.logger.Warn("working tree has uncommitted changes, committing them before deployment", "message", message)
		if _, err := r.adapter.CommitAll(ctx, message); err != nil {
			m.failed(r, StepAutoCommit, err)
			return
		}
		r.outcome.AutoCommit = message
	}

	report := m.runner.RunChecks(ctx, r.spec.PreChecks, m.checkTarget(r, target))
	if !report.Passed {
		r.outcome.Kind = OutcomeAbortedByCheck
		r.outcome.FailedCheck = report.FailedID
		r.outcome.Cause = report.Err
		r.logger.Warn("deployment aborted by check", logging.AttrCheck, report.FailedID, "error", report.Err)
		return
	}

	m.enter(r, PhaseStaging)
	if _, err := r.adapter.Fetch(ctx); err != nil {
		m.failed(r, StepFetch, err)
		return
	}
	if r.spec.Stash {
		if _, err := r.adapter.Stash(ctx); err != nil {
			m.failed(r, StepStash, err)
			return
		}
	}
	if _, err := r.adapter.Checkout(ctx, target); err != nil {
		m.failed(r, StepCheckout, err)
		return
	}

	r.state.Previous = r.state.Current
	r.state.Current = target
	m.saveState(ctx, r)
	r.logger.Info("checked out target", logging.AttrPrevious, r.state.Previous)

	// The pointers have moved. From here on the sequence runs to completion regardless of
	// the caller's cancellation.
	detached := context.WithoutCancel(ctx)

	if r.spec.Pull {
		if _, err := r.adapter.Pull(detached); err != nil {
			m.compensate(ctx, r, StepPull, err)
			return
		}
	}

	m.enter(r, PhasePublishing)
	if _, err := r.adapter.Push(detached, r.state.Current, true); err != nil {
		m.compensate(ctx, r, StepPush, err)
		return
	}

	m.enter(r, PhasePostActing)
	r.outcome.Actions = m.runner.RunActions(detached, r.spec.PostActions, m.checkTarget(r, r.state.Current))
	r.outcome.Kind = OutcomeSucceeded
}

// Rollback makes the recorded previous revision current again. It fails with
// ErrNoPriorRevision when there is nothing to roll back to.
func (m *Machine) Rollback(ctx context.Context, env string) (Outcome, error) {
	r, release, err := m.begin(ctx, env, RequestRollback, false)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	if !r.state.HasPrevious() {
		return Outcome{}, fmt.Errorf("%w: environment '%s'", ErrNoPriorRevision, env)
	}
	r.outcome.Target = r.state.Previous
	r.logger.Info("rollback requested", logging.AttrRevision, r.state.Current, logging.AttrPrevious, r.state.Previous)

	if err := m.rollback(ctx, r); err != nil {
		r.outcome.Kind = OutcomeFailedRollbackAlsoFailed
		r.outcome.FailedStep = StepRollback
		r.outcome.RollbackCause = err
	} else {
		r.outcome.Kind = OutcomeRolledBack
	}
	return m.finish(ctx, r), nil
}

// Resolve records revision as current after an operator repaired the working tree by
// hand. It clears the inconsistent flag and discards the previous revision.
func (m *Machine) Resolve(ctx context.Context, env, revision string) (Outcome, error) {
	if revision == "" {
		return Outcome{}, errors.New("revision is required")
	}
	r, release, err := m.begin(ctx, env, RequestResolve, true)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	wasInconsistent := r.state.Inconsistent
	r.outcome.Target = revision
	r.state = State{Current: revision}
	m.saveState(ctx, r)
	if wasInconsistent && m.observer != nil {
		m.observer.InconsistencyChanged(env, false)
	}
	r.outcome.Kind = OutcomeResolved
	r.logger.Info("environment resolved", logging.AttrRevision, revision, "was_inconsistent", wasInconsistent)
	return m.finish(ctx, r), nil
}

// Status returns the current revision of env.
func (m *Machine) Status(ctx context.Context, env string) (string, error) {
	st, err := m.Inspect(ctx, env)
	if err != nil {
		return "", err
	}
	return st.State.Current, nil
}

// EnvironmentStatus is a read-only snapshot of one environment.
type EnvironmentStatus struct {
	Spec  registry.EnvironmentSpec
	State State
	Phase Phase
}

func (m *Machine) Inspect(ctx context.Context, env string) (EnvironmentStatus, error) {
	spec, err := m.envs.Lookup(env)
	if err != nil {
		return EnvironmentStatus{}, err
	}
	state, err := m.loadState(ctx, spec)
	if err != nil {
		return EnvironmentStatus{}, err
	}
	return EnvironmentStatus{Spec: spec, State: state, Phase: m.phases.get(env)}, nil
}

// begin resolves the environment, takes the repository lock and loads state.
func (m *Machine) begin(ctx context.Context, env string, req Request, allowInconsistent bool) (*run, func(), error) {
	spec, err := m.envs.Lookup(env)
	if err != nil {
		return nil, nil, err
	}

	release, err := m.lock(ctx, spec.Repository)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock repository %s: %w", spec.Repository, err)
	}

	state, err := m.loadState(ctx, spec)
	if err != nil {
		release()
		return nil, nil, err
	}
	if state.Inconsistent && !allowInconsistent {
		release()
		return nil, nil, fmt.Errorf("%w: environment '%s' needs 'gitship resolve' after its last rollback failed", ErrInconsistentState, env)
	}

	started := m.now()
	id := NewDeploymentID(started)
	r := &run{
		spec:    spec,
		adapter: m.adapters(spec),
		state:   state,
		outcome: Outcome{
			ID:          id,
			Request:     req,
			Environment: env,
			From:        state.Current,
			StartedAt:   started,
		},
		logger: m.logger.With(
			logging.AttrEnvironment, env,
			logging.AttrDeploymentID, id,
		),
	}
	return r, release, nil
}

func (m *Machine) lock(ctx context.Context, repository string) (func(), error) {
	release, err := m.locks.acquire(ctx, repository)
	if err != nil {
		return nil, err
	}
	if m.locker == nil {
		return release, nil
	}

	unlock, err := m.locker.Lock(ctx, repository)
	if err != nil {
		release()
		return nil, err
	}
	return func() {
		if err := unlock(); err != nil {
			m.logger.Warn("failed to release repository lock", "repository", repository, "error", err)
		}
		release()
	}, nil
}

func (m *Machine) loadState(ctx context.Context, spec registry.EnvironmentSpec) (State, error) {
	state, found, err := m.store.Load(ctx, spec.Name)
	if err != nil {
		return State{}, fmt.Errorf("failed to load state of environment '%s': %w", spec.Name, err)
	}
	if !found || state.Current == "" {
		state.Current = spec.Baseline
	}
	return state, nil
}

// saveState persists r.state. A failed write is logged and does not change the outcome;
// the working tree has already moved and the in-process result is still accurate.
func (m *Machine) saveState(ctx context.Context, r *run) {
	if err := m.store.Save(context.WithoutCancel(ctx), r.spec.Name, r.state); err != nil {
		r.logger.Error("failed to persist environment state", "error", err)
	}
}

func (m *Machine) enter(r *run, phase Phase) {
	m.phases.set(r.spec.Name, phase)
	r.logger.Debug("phase", logging.AttrPhase, phase)
}

// failed reports a failure that happened before the revision pointers moved.
func (m *Machine) failed(r *run, step Step, cause error) {
	r.outcome.Kind = OutcomeFailed
	r.outcome.FailedStep = step
	r.outcome.Cause = cause
	r.logger.Error("deployment failed", logging.AttrStep, step, "error", cause)
}

// compensate handles a failure after the pointers moved by rolling back when enabled.
func (m *Machine) compensate(ctx context.Context, r *run, step Step, cause error) {
	r.outcome.FailedStep = step
	r.outcome.Cause = cause

	if !r.spec.RollbackEnabled {
		r.outcome.Kind = OutcomeFailed
		r.logger.Error("deployment failed, automatic rollback is disabled", logging.AttrStep, step, "error", cause)
		return
	}

	r.logger.Warn("deployment failed, rolling back", logging.AttrStep, step, "error", cause)
	if err := m.rollback(ctx, r); err != nil {
		r.outcome.Kind = OutcomeFailedRollbackAlsoFailed
		r.outcome.RollbackCause = err
		return
	}
	r.outcome.Kind = OutcomeFailedAndRolledBack
}

// rollback restores r.state.Previous. On failure Current is left at the revision being
// rolled back from and the environment is marked inconsistent.
func (m *Machine) rollback(ctx context.Context, r *run) error {
	if !r.state.HasPrevious() {
		return fmt.Errorf("%w: %w", ErrRollbackFailed, ErrNoPriorRevision)
	}
	m.enter(r, PhaseRollingBack)
	detached := context.WithoutCancel(ctx)

	var err error
	switch r.spec.RollbackStrategy {
	case config.RollbackStrategyReset:
		if _, err = r.adapter.HardReset(detached, 1); err == nil {
			_, err = r.adapter.Push(detached, r.state.Current, true)
		}
	default:
		_, err = r.adapter.Checkout(detached, r.state.Previous)
	}

	if err != nil {
		r.state.Inconsistent = true
		m.saveState(ctx, r)
		if m.observer != nil {
			m.observer.InconsistencyChanged(r.spec.Name, true)
		}
		r.logger.Error("rollback failed, environment is inconsistent",
			logging.AttrRevision, r.state.Current,
			logging.AttrPrevious, r.state.Previous,
			"error", err)
		return fmt.Errorf("%w: %w", ErrRollbackFailed, err)
	}

	rolledBackFrom := r.state.Current
	r.state.Current = r.state.Previous
	r.state.Previous = ""
	m.saveState(ctx, r)
	r.logger.Info("rolled back", logging.AttrRevision, r.state.Current, "from", rolledBackFrom)
	return nil
}

func (m *Machine) checkTarget(r *run, revision string) checks.Target {
	previous := r.state.Current
	if revision == r.state.Current {
		previous = r.state.Previous
	}
	return checks.Target{
		Project:     m.project,
		Environment: r.spec.Name,
		Branch:      r.spec.Branch,
		Revision:    revision,
		Previous:    previous,
		Repository:  r.spec.Repository,
	}
}

// finish stamps the outcome, returns the environment to idle and reports the result.
func (m *Machine) finish(ctx context.Context, r *run) Outcome {
	m.phases.set(r.spec.Name, PhaseIdle)

	o := r.outcome
	o.To = r.state.Current
	o.Previous = r.state.Previous
	o.FinishedAt = m.now()

	if m.recorder != nil {
		if err := m.recorder.Record(context.WithoutCancel(ctx), o); err != nil {
			r.logger.Warn("failed to record deployment history", "error", err)
		}
	}
	if m.observer != nil {
		m.observer.DeploymentFinished(o)
	}

	attrs := []any{"outcome", o.Kind, logging.AttrRevision, o.To, "duration", o.Duration()}
	switch {
	case o.Kind.Escalated():
		r.logger.Error("request finished", attrs...)
	case o.Kind == OutcomeSucceeded || o.Kind == OutcomeRolledBack || o.Kind == OutcomeResolved:
		r.logger.Info("request finished", attrs...)
	default:
		r.logger.Warn("request finished", attrs...)
	}
	return o
}
