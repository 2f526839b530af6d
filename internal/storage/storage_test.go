package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInMemoryDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newInMemoryDB(t)
	require.NoError(t, db.Migrate())
}

func TestDeployment_SaveAndGet(t *testing.T) {
	db := newInMemoryDB(t)
	ctx := context.Background()
	started := time.Date(2026, 2, 22, 1, 1, 1, 0, time.UTC)

	actions, err := json.Marshal([]ActionRecord{{ID: "notify", Error: "timeout", Duration: "1s"}})
	require.NoError(t, err)

	d := Deployment{
		ID:           "01JMJ3Y9ZK0000000000000001",
		Project:      "shop",
		Environment:  "staging",
		Request:      "deploy",
		Outcome:      "succeeded",
		Target:       "develop",
		FromRevision: "main",
		ToRevision:   "develop",
		Previous:     "main",
		AutoCommit:   "Auto-commit before deployment on 2026-02-22 01:01:01",
		Actions:      actions,
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
	}
	require.NoError(t, db.SaveDeployment(ctx, d))

	got, err := db.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Project, got.Project)
	assert.Equal(t, d.Environment, got.Environment)
	assert.Equal(t, d.ToRevision, got.ToRevision)
	assert.Equal(t, d.AutoCommit, got.AutoCommit)
	assert.True(t, got.StartedAt.Equal(started), "StartedAt = %v", got.StartedAt)

	records, err := got.GetActions()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "notify", records[0].ID)
	assert.Equal(t, "timeout", records[0].Error)
}

func TestDeployment_GetDeployment_NotFound(t *testing.T) {
	db := newInMemoryDB(t)

	_, err := db.GetDeployment(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeployment_PruneOldDeployments(t *testing.T) {
	db := newInMemoryDB(t)
	ctx := context.Background()
	now := time.Now()

	ids := []string{"01A", "01B", "01C", "01D"}
	for _, id := range ids {
		require.NoError(t, db.SaveDeployment(ctx, Deployment{
			ID: id, Project: "shop", Environment: "staging", Request: "deploy", Outcome: "succeeded",
			StartedAt: now, FinishedAt: now,
		}))
	}
	require.NoError(t, db.SaveDeployment(ctx, Deployment{
		ID: "01Y", Project: "blog", Environment: "staging", Request: "deploy", Outcome: "succeeded",
		StartedAt: now, FinishedAt: now,
	}))
	require.NoError(t, db.SaveDeployment(ctx, Deployment{
		ID: "01Z", Project: "shop", Environment: "production", Request: "deploy", Outcome: "succeeded",
		StartedAt: now, FinishedAt: now,
	}))

	require.NoError(t, db.PruneOldDeployments(ctx, "shop", "staging", 2))

	history, err := db.GetDeploymentHistory(ctx, "shop", "staging", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "01D", history[0].ID)
	assert.Equal(t, "01C", history[1].ID)

	other, err := db.GetDeploymentHistory(ctx, "shop", "production", 10)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	blog, err := db.GetDeploymentHistory(ctx, "blog", "staging", 10)
	require.NoError(t, err)
	require.Len(t, blog, 1)
	assert.Equal(t, "01Y", blog[0].ID)
}

func TestDeployment_GetActions_InvalidJSON(t *testing.T) {
	d := &Deployment{Actions: json.RawMessage("not-json")}

	_, err := d.GetActions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse deployment actions")
}

func TestEnvironmentState_SaveGetList(t *testing.T) {
	db := newInMemoryDB(t)
	ctx := context.Background()

	_, found, err := db.GetEnvironmentState(ctx, "shop", "staging")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.SaveEnvironmentState(ctx, EnvironmentState{Project: "shop", Environment: "staging", Current: "develop", Previous: "main"}))
	require.NoError(t, db.SaveEnvironmentState(ctx, EnvironmentState{Project: "shop", Environment: "staging", Current: "develop", Inconsistent: true}))
	require.NoError(t, db.SaveEnvironmentState(ctx, EnvironmentState{Project: "shop", Environment: "production", Current: "main"}))

	got, found, err := db.GetEnvironmentState(ctx, "shop", "staging")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "develop", got.Current)
	assert.Equal(t, "", got.Previous)
	assert.True(t, got.Inconsistent)
	assert.False(t, got.UpdatedAt.IsZero())

	states, err := db.ListEnvironmentStates(ctx, "shop")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "production", states[0].Environment)
	assert.Equal(t, "staging", states[1].Environment)
}

func TestEnvironmentState_ScopedByProject(t *testing.T) {
	db := newInMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveEnvironmentState(ctx, EnvironmentState{Project: "shop", Environment: "staging", Current: "shop-feature", Previous: "main", Inconsistent: true}))
	require.NoError(t, db.SaveEnvironmentState(ctx, EnvironmentState{Project: "blog", Environment: "staging", Current: "main"}))

	shop, found, err := db.GetEnvironmentState(ctx, "shop", "staging")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "shop-feature", shop.Current)
	assert.True(t, shop.Inconsistent)

	blog, found, err := db.GetEnvironmentState(ctx, "blog", "staging")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "main", blog.Current)
	assert.Empty(t, blog.Previous)
	assert.False(t, blog.Inconsistent)

	_, found, err = db.GetEnvironmentState(ctx, "docs", "staging")
	require.NoError(t, err)
	assert.False(t, found)

	states, err := db.ListEnvironmentStates(ctx, "blog")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "blog", states[0].Project)
}
