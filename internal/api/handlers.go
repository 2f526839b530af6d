package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gitship/gitship/internal/apitypes"
	"github.com/gitship/gitship/internal/constants"
	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/registry"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	maxRequestBodySize  = 1 << 16
)

func (s *APIServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(w, http.StatusOK, apitypes.HealthResponse{
			Status:  "ok",
			Version: constants.Version,
			Service: "gitship",
		})
	}
}

func (s *APIServer) handleEnvironments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specs := s.envs.List()
		resp := apitypes.EnvironmentsResponse{Environments: make([]apitypes.EnvironmentInfo, 0, len(specs))}
		for _, spec := range specs {
			resp.Environments = append(resp.Environments, NewEnvironmentInfo(spec))
		}
		encodeJSON(w, http.StatusOK, resp)
	}
}

func (s *APIServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := r.PathValue("env")
		st, err := s.machine.Inspect(r.Context(), env)
		if err != nil {
			s.writeRequestError(w, r, err)
			return
		}
		encodeJSON(w, http.StatusOK, apitypes.StatusResponse{
			Environment:  env,
			Current:      st.State.Current,
			Previous:     st.State.Previous,
			Inconsistent: st.State.Inconsistent,
			Phase:        string(st.Phase),
		})
	}
}

func (s *APIServer) handleDeploy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := r.PathValue("env")

		var req apitypes.DeployRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
			return
		}

		s.logger.Info("deploy requested over API",
			"request_id", requestIDFrom(r.Context()),
			"environment", env,
			"branch", req.Branch)

		outcome, err := s.machine.Deploy(r.Context(), env, req.Branch)
		if err != nil {
			s.writeRequestError(w, r, err)
			return
		}
		encodeJSON(w, outcomeStatus(outcome), NewOutcomeResponse(outcome))
	}
}

func (s *APIServer) handleRollback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := r.PathValue("env")
		s.logger.Info("rollback requested over API",
			"request_id", requestIDFrom(r.Context()),
			"environment", env)

		outcome, err := s.machine.Rollback(r.Context(), env)
		if err != nil {
			s.writeRequestError(w, r, err)
			return
		}
		encodeJSON(w, outcomeStatus(outcome), NewOutcomeResponse(outcome))
	}
}

func (s *APIServer) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			writeError(w, http.StatusNotImplemented, "Deployment history is not enabled")
			return
		}

		env := r.PathValue("env")
		if _, err := s.machine.Inspect(r.Context(), env); err != nil {
			s.writeRequestError(w, r, err)
			return
		}

		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxHistoryLimit {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
				return
			}
			limit = n
		}

		records, err := s.history.GetDeploymentHistory(r.Context(), env, limit)
		if err != nil {
			s.writeRequestError(w, r, err)
			return
		}
		resp := apitypes.HistoryResponse{Environment: env, Deployments: make([]apitypes.HistoryEntry, 0, len(records))}
		for _, d := range records {
			resp.Deployments = append(resp.Deployments, apitypes.HistoryEntry{
				ID:            d.ID,
				Request:       d.Request,
				Outcome:       d.Outcome,
				Target:        d.Target,
				From:          d.FromRevision,
				To:            d.ToRevision,
				FailedStep:    d.FailedStep,
				FailedCheck:   d.FailedCheck,
				Cause:         d.Cause,
				RollbackCause: d.RollbackCause,
				StartedAt:     d.StartedAt,
				FinishedAt:    d.FinishedAt,
			})
		}
		encodeJSON(w, http.StatusOK, resp)
	}
}

// outcomeStatus maps an outcome to the response status. Failures that left the
// environment in a known state are 422; an escalated outcome is a server error.
func outcomeStatus(o deploy.Outcome) int {
	switch {
	case o.Kind.Escalated():
		return http.StatusInternalServerError
	case o.Kind == deploy.OutcomeSucceeded, o.Kind == deploy.OutcomeRolledBack, o.Kind == deploy.OutcomeResolved:
		return http.StatusOK
	default:
		return http.StatusUnprocessableEntity
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownEnvironment):
		return http.StatusNotFound
	case errors.Is(err, deploy.ErrNoPriorRevision), errors.Is(err, deploy.ErrInconsistentState):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *APIServer) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", requestIDFrom(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// NewOutcomeResponse converts an outcome to its JSON form.
func NewOutcomeResponse(o deploy.Outcome) apitypes.OutcomeResponse {
	resp := apitypes.OutcomeResponse{
		ID:          o.ID,
		Request:     string(o.Request),
		Outcome:     string(o.Kind),
		Summary:     o.Summary(),
		Environment: o.Environment,
		Target:      o.Target,
		From:        o.From,
		To:          o.To,
		Previous:    o.Previous,
		FailedCheck: o.FailedCheck,
		FailedStep:  string(o.FailedStep),
		AutoCommit:  o.AutoCommit,
		StartedAt:   o.StartedAt,
		FinishedAt:  o.FinishedAt,
	}
	if o.Cause != nil {
		resp.Cause = o.Cause.Error()
	}
	if o.RollbackCause != nil {
		resp.RollbackCause = o.RollbackCause.Error()
	}
	for _, a := range o.Actions {
		ar := apitypes.ActionResult{ID: a.ID, DurationMs: a.Duration.Milliseconds()}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		resp.Actions = append(resp.Actions, ar)
	}
	return resp
}

func NewEnvironmentInfo(spec registry.EnvironmentSpec) apitypes.EnvironmentInfo {
	return apitypes.EnvironmentInfo{
		Name:             spec.Name,
		Branch:           spec.Branch,
		Repository:       spec.Repository,
		PreChecks:        spec.PreChecks,
		PostActions:      spec.PostActions,
		RollbackEnabled:  spec.RollbackEnabled,
		RollbackStrategy: string(spec.RollbackStrategy),
	}
}

func encodeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	encodeJSON(w, status, apitypes.ErrorResponse{Error: message})
}
