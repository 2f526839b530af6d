package deploy

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitship/gitship/internal/storage"
	"github.com/oklog/ulid"
)

// NewDeploymentID returns a ULID so deployment records sort by time.
func NewDeploymentID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

type deploymentStore interface {
	SaveDeployment(ctx context.Context, d storage.Deployment) error
	PruneOldDeployments(ctx context.Context, project, env string, keep int) error
	GetDeploymentHistory(ctx context.Context, project, env string, limit int) ([]storage.Deployment, error)
}

// Recorder writes every finished request to the deployment history.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// StorageRecorder records outcomes of one project in the sqlite history and prunes each
// environment to Keep records.
type StorageRecorder struct {
	Store   deploymentStore
	Project string
	Keep    int
}

func NewStorageRecorder(db *storage.DB, project string, keep int) *StorageRecorder {
	return &StorageRecorder{Store: db, Project: project, Keep: keep}
}

func (r *StorageRecorder) Record(ctx context.Context, o Outcome) error {
	d, err := toDeployment(o)
	if err != nil {
		return err
	}
	d.Project = r.Project
	if err := r.Store.SaveDeployment(ctx, d); err != nil {
		return err
	}
	if r.Keep > 0 {
		if err := r.Store.PruneOldDeployments(ctx, r.Project, o.Environment, r.Keep); err != nil {
			return err
		}
	}
	return nil
}

// GetDeploymentHistory returns up to limit records of env in the recorder's project.
func (r *StorageRecorder) GetDeploymentHistory(ctx context.Context, env string, limit int) ([]storage.Deployment, error) {
	return r.Store.GetDeploymentHistory(ctx, r.Project, env, limit)
}

func toDeployment(o Outcome) (storage.Deployment, error) {
	records := make([]storage.ActionRecord, 0, len(o.Actions))
	for _, a := range o.Actions {
		rec := storage.ActionRecord{ID: a.ID, Duration: a.Duration.String()}
		if a.Err != nil {
			rec.Error = a.Err.Error()
		}
		records = append(records, rec)
	}
	actions, err := json.Marshal(records)
	if err != nil {
		return storage.Deployment{}, fmt.Errorf("failed to encode action results: %w", err)
	}

	return storage.Deployment{
		ID:            o.ID,
		Environment:   o.Environment,
		Request:       string(o.Request),
		Outcome:       string(o.Kind),
		Target:        o.Target,
		FromRevision:  o.From,
		ToRevision:    o.To,
		Previous:      o.Previous,
		FailedStep:    string(o.FailedStep),
		FailedCheck:   o.FailedCheck,
		Cause:         errString(o.Cause),
		RollbackCause: errString(o.RollbackCause),
		AutoCommit:    o.AutoCommit,
		Actions:       actions,
		StartedAt:     o.StartedAt,
		FinishedAt:    o.FinishedAt,
	}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type environmentStateStore interface {
	GetEnvironmentState(ctx context.Context, project, env string) (storage.EnvironmentState, bool, error)
	SaveEnvironmentState(ctx context.Context, s storage.EnvironmentState) error
	ListEnvironmentStates(ctx context.Context, project string) ([]storage.EnvironmentState, error)
}

// SQLStateStore persists the revision pointers of one project in sqlite so separate
// invocations share them.
type SQLStateStore struct {
	db      environmentStateStore
	project string
}

func NewSQLStateStore(db *storage.DB, project string) *SQLStateStore {
	return &SQLStateStore{db: db, project: project}
}

func (s *SQLStateStore) Load(ctx context.Context, env string) (State, bool, error) {
	row, found, err := s.db.GetEnvironmentState(ctx, s.project, env)
	if err != nil || !found {
		return State{}, found, err
	}
	return State{Current: row.Current, Previous: row.Previous, Inconsistent: row.Inconsistent}, true, nil
}

func (s *SQLStateStore) Save(ctx context.Context, env string, state State) error {
	return s.db.SaveEnvironmentState(ctx, storage.EnvironmentState{
		Project:      s.project,
		Environment:  env,
		Current:      state.Current,
		Previous:     state.Previous,
		Inconsistent: state.Inconsistent,
	})
}

// Inconsistent returns the environments of the project persisted as inconsistent.
func (s *SQLStateStore) Inconsistent(ctx context.Context) ([]string, error) {
	states, err := s.db.ListEnvironmentStates(ctx, s.project)
	if err != nil {
		return nil, err
	}
	var envs []string
	for _, st := range states {
		if st.Inconsistent {
			envs = append(envs, st.Environment)
		}
	}
	return envs, nil
}
