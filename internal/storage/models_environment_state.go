package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnvironmentState is the persisted revision pointers of one environment. Rows are keyed by
// project and environment because every project shares the same database file.
type EnvironmentState struct {
	Project      string    `json:"project,omitempty"`
	Environment  string    `json:"environment"`
	Current      string    `json:"current"`
	Previous     string    `json:"previous,omitempty"`
	Inconsistent bool      `json:"inconsistent"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const environmentStateColumns = `project, environment, current_revision, previous_revision, inconsistent, updated_at`

// GetEnvironmentState returns found=false when env of project has no stored state.
func (db *DB) GetEnvironmentState(ctx context.Context, project, env string) (EnvironmentState, bool, error) {
	var s EnvironmentState
	err := db.QueryRowContext(ctx,
		`SELECT `+environmentStateColumns+` FROM environment_state WHERE project = ? AND environment = ?`,
		project, env).
		Scan(&s.Project, &s.Environment, &s.Current, &s.Previous, &s.Inconsistent, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return EnvironmentState{}, false, nil
	}
	if err != nil {
		return EnvironmentState{}, false, fmt.Errorf("failed to get state of %s: %w", env, err)
	}
	return s, true, nil
}

func (db *DB) SaveEnvironmentState(ctx context.Context, s EnvironmentState) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO environment_state (`+environmentStateColumns+`)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(project, environment) DO UPDATE SET
    current_revision = excluded.current_revision,
    previous_revision = excluded.previous_revision,
    inconsistent = excluded.inconsistent,
    updated_at = excluded.updated_at`,
		s.Project, s.Environment, s.Current, s.Previous, s.Inconsistent, s.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save state of %s: %w", s.Environment, err)
	}
	return nil
}

// ListEnvironmentStates returns every stored state of project ordered by environment.
func (db *DB) ListEnvironmentStates(ctx context.Context, project string) ([]EnvironmentState, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+environmentStateColumns+` FROM environment_state WHERE project = ? ORDER BY environment`,
		project)
	if err != nil {
		return nil, fmt.Errorf("failed to list environment states: %w", err)
	}
	defer rows.Close()

	var states []EnvironmentState
	for rows.Next() {
		var s EnvironmentState
		if err := rows.Scan(&s.Project, &s.Environment, &s.Current, &s.Previous, &s.Inconsistent, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan environment state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
