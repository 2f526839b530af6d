package apitypes

import "time"

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Service string `json:"service"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type EnvironmentInfo struct {
	Name             string   `json:"name"`
	Branch           string   `json:"branch"`
	Repository       string   `json:"repository"`
	PreChecks        []string `json:"preChecks,omitempty"`
	PostActions      []string `json:"postActions,omitempty"`
	RollbackEnabled  bool     `json:"rollbackEnabled"`
	RollbackStrategy string   `json:"rollbackStrategy"`
}

type EnvironmentsResponse struct {
	Environments []EnvironmentInfo `json:"environments"`
}

type StatusResponse struct {
	Environment  string `json:"environment"`
	Current      string `json:"current"`
	Previous     string `json:"previous,omitempty"`
	Inconsistent bool   `json:"inconsistent"`
	Phase        string `json:"phase"`
}

type DeployRequest struct {
	// Branch overrides the environment's configured branch.
	Branch string `json:"branch,omitempty"`
}

type ActionResult struct {
	ID         string `json:"id"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

type OutcomeResponse struct {
	ID            string         `json:"id"`
	Request       string         `json:"request"`
	Outcome       string         `json:"outcome"`
	Summary       string         `json:"summary"`
	Environment   string         `json:"environment"`
	Target        string         `json:"target,omitempty"`
	From          string         `json:"from,omitempty"`
	To            string         `json:"to,omitempty"`
	Previous      string         `json:"previous,omitempty"`
	FailedCheck   string         `json:"failedCheck,omitempty"`
	FailedStep    string         `json:"failedStep,omitempty"`
	Cause         string         `json:"cause,omitempty"`
	RollbackCause string         `json:"rollbackCause,omitempty"`
	AutoCommit    string         `json:"autoCommit,omitempty"`
	Actions       []ActionResult `json:"actions,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    time.Time      `json:"finishedAt"`
}

type HistoryEntry struct {
	ID            string    `json:"id"`
	Request       string    `json:"request"`
	Outcome       string    `json:"outcome"`
	Target        string    `json:"target,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	FailedStep    string    `json:"failedStep,omitempty"`
	FailedCheck   string    `json:"failedCheck,omitempty"`
	Cause         string    `json:"cause,omitempty"`
	RollbackCause string    `json:"rollbackCause,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

type HistoryResponse struct {
	Environment string         `json:"environment"`
	Deployments []HistoryEntry `json:"deployments"`
}
