package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// Deployment is one recorded deploy, rollback or resolve request.
type Deployment struct {
	ID            string          `json:"id"`
	Project       string          `json:"project,omitempty"`
	Environment   string          `json:"environment"`
	Request       string          `json:"request"`
	Outcome       string          `json:"outcome"`
	Target        string          `json:"target,omitempty"`
	FromRevision  string          `json:"from,omitempty"`
	ToRevision    string          `json:"to,omitempty"`
	Previous      string          `json:"previous,omitempty"`
	FailedStep    string          `json:"failedStep,omitempty"`
	FailedCheck   string          `json:"failedCheck,omitempty"`
	Cause         string          `json:"cause,omitempty"`
	RollbackCause string          `json:"rollbackCause,omitempty"`
	AutoCommit    string          `json:"autoCommit,omitempty"`
	Actions       json.RawMessage `json:"actions,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
}

// ActionRecord is the stored form of a post-deployment action result.
type ActionRecord struct {
	ID       string `json:"id"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// GetActions decodes the stored action results.
func (d *Deployment) GetActions() ([]ActionRecord, error) {
	if len(d.Actions) == 0 {
		return nil, nil
	}
	var actions []ActionRecord
	if err := json.Unmarshal(d.Actions, &actions); err != nil {
		return nil, fmt.Errorf("failed to parse deployment actions: %w", err)
	}
	return actions, nil
}

func (db *DB) SaveDeployment(ctx context.Context, d Deployment) error {
	actions := d.Actions
	if len(actions) == 0 {
		actions = json.RawMessage("[]")
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO deployments (
    id, project, environment, request, outcome, target, from_revision, to_revision, previous_revision,
    failed_step, failed_check, cause, rollback_cause, auto_commit, actions, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Project, d.Environment, d.Request, d.Outcome, d.Target, d.FromRevision, d.ToRevision, d.Previous,
		d.FailedStep, d.FailedCheck, d.Cause, d.RollbackCause, d.AutoCommit, string(actions),
		d.StartedAt.UTC(), d.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save deployment %s: %w", d.ID, err)
	}
	return nil
}

const deploymentColumns = `id, project, environment, request, outcome, target, from_revision, to_revision, previous_revision,
    failed_step, failed_check, cause, rollback_cause, auto_commit, actions, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row rowScanner) (Deployment, error) {
	var d Deployment
	var actions string
	err := row.Scan(
		&d.ID, &d.Project, &d.Environment, &d.Request, &d.Outcome, &d.Target, &d.FromRevision, &d.ToRevision, &d.Previous,
		&d.FailedStep, &d.FailedCheck, &d.Cause, &d.RollbackCause, &d.AutoCommit, &actions,
		&d.StartedAt, &d.FinishedAt,
	)
	if err != nil {
		return Deployment{}, err
	}
	d.Actions = json.RawMessage(actions)
	return d, nil
}

func (db *DB) GetDeployment(ctx context.Context, id string) (Deployment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = ?`, id)
	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Deployment{}, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Deployment{}, fmt.Errorf("failed to get deployment %s: %w", id, err)
	}
	return d, nil
}

// GetDeploymentHistory returns up to limit records for env of project, newest first. IDs are
// ULIDs, so ordering by id is ordering by time.
func (db *DB) GetDeploymentHistory(ctx context.Context, project, env string, limit int) ([]Deployment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE project = ? AND environment = ? ORDER BY id DESC LIMIT ?`,
		project, env, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment history: %w", err)
	}
	defer rows.Close()

	var history []Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		history = append(history, d)
	}
	return history, rows.Err()
}

// PruneOldDeployments keeps the newest keep records of env in project.
func (db *DB) PruneOldDeployments(ctx context.Context, project, env string, keep int) error {
	_, err := db.ExecContext(ctx, `
DELETE FROM deployments
WHERE project = ? AND environment = ? AND id NOT IN (
    SELECT id FROM deployments WHERE project = ? AND environment = ? ORDER BY id DESC LIMIT ?
)`, project, env, project, env, keep)
	if err != nil {
		return fmt.Errorf("failed to prune deployments: %w", err)
	}
	return nil
}
