package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gitship/gitship/internal/apitypes"
	"github.com/gitship/gitship/internal/checks"
	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/registry"
	"github.com/gitship/gitship/internal/storage"
)

const testToken = "secret-token"

type fakeMachine struct {
	deployCalls   []string
	rollbackCalls []string
	deployOutcome deploy.Outcome
	deployErr     error
	rollbackErr   error
	states        map[string]deploy.State
}

func (f *fakeMachine) Deploy(_ context.Context, env, target string) (deploy.Outcome, error) {
	f.deployCalls = append(f.deployCalls, env+"@"+target)
	if f.deployErr != nil {
		return deploy.Outcome{}, f.deployErr
	}
	o := f.deployOutcome
	o.Environment = env
	return o, nil
}

func (f *fakeMachine) Rollback(_ context.Context, env string) (deploy.Outcome, error) {
	f.rollbackCalls = append(f.rollbackCalls, env)
	if f.rollbackErr != nil {
		return deploy.Outcome{}, f.rollbackErr
	}
	return deploy.Outcome{Environment: env, Request: deploy.RequestRollback, Kind: deploy.OutcomeRolledBack, From: "feature-x", To: "main"}, nil
}

func (f *fakeMachine) Inspect(_ context.Context, env string) (deploy.EnvironmentStatus, error) {
	st, ok := f.states[env]
	if !ok {
		return deploy.EnvironmentStatus{}, fmt.Errorf("%w: '%s'", registry.ErrUnknownEnvironment, env)
	}
	return deploy.EnvironmentStatus{State: st, Phase: deploy.PhaseIdle}, nil
}

type fakeEnvs []registry.EnvironmentSpec

func (f fakeEnvs) List() []registry.EnvironmentSpec { return f }

type fakeHistory struct {
	records []storage.Deployment
	limit   int
}

func (f *fakeHistory) GetDeploymentHistory(_ context.Context, _ string, limit int) ([]storage.Deployment, error) {
	f.limit = limit
	return f.records, nil
}

func newTestServer(m *fakeMachine, h History) *APIServer {
	if m.states == nil {
		m.states = map[string]deploy.State{"staging": {Current: "main"}}
	}
	return NewServer(Options{
		Machine: m,
		Environments: fakeEnvs{{
			Name: "staging", Branch: "develop", Repository: "/srv/app",
			RollbackEnabled: true, RollbackStrategy: "checkout",
		}},
		History:   h,
		Metrics:   http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "metrics") }),
		APIToken:  testToken,
		RateLimit: 1000,
		Burst:     1000,
	})
}

func do(t *testing.T, s *APIServer, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil)
	rr := do(t, s, http.MethodGet, "/health", "", false)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp apitypes.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.Status != "ok" || resp.Service != "gitship" {
		t.Errorf("resp = %+v", resp)
	}
	if rr.Header().Get(requestIDHeader) == "" {
		t.Error("expected a request ID header")
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", "Authorization header required"},
		{"wrong scheme", "Basic abc", "Invalid authorization format"},
		{"empty token", "Bearer ", "Empty token"},
		{"wrong token", "Bearer nope", "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/environments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			s.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body = %q, want it to contain %q", rr.Body.String(), tt.want)
			}
		})
	}
}

func TestEnvironments(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil)
	rr := do(t, s, http.MethodGet, "/v1/environments", "", true)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp apitypes.EnvironmentsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(resp.Environments) != 1 || resp.Environments[0].Branch != "develop" {
		t.Errorf("environments = %+v", resp.Environments)
	}
}

func TestStatus(t *testing.T) {
	m := &fakeMachine{states: map[string]deploy.State{"staging": {Current: "feature-x", Previous: "main"}}}
	s := newTestServer(m, nil)

	rr := do(t, s, http.MethodGet, "/v1/status/staging", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp apitypes.StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.Current != "feature-x" || resp.Previous != "main" || resp.Phase != "idle" {
		t.Errorf("resp = %+v", resp)
	}

	rr = do(t, s, http.MethodGet, "/v1/status/nope", "", true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown env status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeploy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		outcome    deploy.Outcome
		err        error
		wantStatus int
		wantCall   string
		wantBody   string
	}{
		{
			name:       "default branch",
			outcome:    deploy.Outcome{Kind: deploy.OutcomeSucceeded, To: "develop", StartedAt: now, FinishedAt: now},
			wantStatus: http.StatusOK,
			wantCall:   "staging@",
			wantBody:   `"outcome":"succeeded"`,
		},
		{
			name:       "branch override",
			body:       `{"branch":"feature-x"}`,
			outcome:    deploy.Outcome{Kind: deploy.OutcomeSucceeded, To: "feature-x"},
			wantStatus: http.StatusOK,
			wantCall:   "staging@feature-x",
		},
		{
			name:       "aborted by check",
			outcome:    deploy.Outcome{Kind: deploy.OutcomeAbortedByCheck, FailedCheck: "lint", Cause: errors.New("exit status 1")},
			wantStatus: http.StatusUnprocessableEntity,
			wantCall:   "staging@",
			wantBody:   `"failedCheck":"lint"`,
		},
		{
			name: "rollback also failed",
			outcome: deploy.Outcome{
				Kind: deploy.OutcomeFailedRollbackAlsoFailed, FailedStep: deploy.StepPush,
				Cause: errors.New("rejected"), RollbackCause: errors.New("checkout failed"),
			},
			wantStatus: http.StatusInternalServerError,
			wantCall:   "staging@",
			wantBody:   `"rollbackCause":"checkout failed"`,
		},
		{
			name:       "inconsistent environment",
			err:        deploy.ErrInconsistentState,
			wantStatus: http.StatusConflict,
			wantCall:   "staging@",
		},
		{
			name:       "unknown field",
			body:       `{"branch":"x","force":true}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "unknown field",
		},
		{
			name:       "invalid json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMachine{deployOutcome: tt.outcome, deployErr: tt.err}
			s := newTestServer(m, nil)

			rr := do(t, s, http.MethodPost, "/v1/deploy/staging", tt.body, true)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantCall == "" {
				if len(m.deployCalls) != 0 {
					t.Errorf("deploy calls = %v, want none", m.deployCalls)
				}
			} else if len(m.deployCalls) != 1 || m.deployCalls[0] != tt.wantCall {
				t.Errorf("deploy calls = %v, want [%s]", m.deployCalls, tt.wantCall)
			}
			if tt.wantBody != "" && !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDeploy_ReportsActions(t *testing.T) {
	m := &fakeMachine{deployOutcome: deploy.Outcome{
		Kind: deploy.OutcomeSucceeded,
		Actions: []checks.ActionResult{
			{ID: "notify", Duration: 1500 * time.Millisecond},
			{ID: "tag", Err: errors.New("tag exists")},
		},
	}}
	s := newTestServer(m, nil)

	rr := do(t, s, http.MethodPost, "/v1/deploy/staging", "", true)
	var resp apitypes.OutcomeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(resp.Actions) != 2 {
		t.Fatalf("actions = %+v", resp.Actions)
	}
	if resp.Actions[0].DurationMs != 1500 || resp.Actions[1].Error != "tag exists" {
		t.Errorf("actions = %+v", resp.Actions)
	}
}

func TestRollback(t *testing.T) {
	m := &fakeMachine{}
	s := newTestServer(m, nil)

	rr := do(t, s, http.MethodPost, "/v1/rollback/staging", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"outcome":"rolled-back"`) {
		t.Errorf("body = %s", rr.Body.String())
	}

	m.rollbackErr = fmt.Errorf("%w: environment 'staging'", deploy.ErrNoPriorRevision)
	rr = do(t, s, http.MethodPost, "/v1/rollback/staging", "", true)
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestHistory(t *testing.T) {
	h := &fakeHistory{records: []storage.Deployment{
		{ID: "02", Request: "rollback", Outcome: "rolled-back", FromRevision: "feature-x", ToRevision: "main"},
		{ID: "01", Request: "deploy", Outcome: "succeeded", FromRevision: "main", ToRevision: "feature-x"},
	}}
	s := newTestServer(&fakeMachine{}, h)

	rr := do(t, s, http.MethodGet, "/v1/history/staging?limit=5", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if h.limit != 5 {
		t.Errorf("limit = %d, want 5", h.limit)
	}
	var resp apitypes.HistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(resp.Deployments) != 2 || resp.Deployments[0].To != "main" {
		t.Errorf("deployments = %+v", resp.Deployments)
	}

	rr = do(t, s, http.MethodGet, "/v1/history/staging?limit=0", "", true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = do(t, s, http.MethodGet, "/v1/history/nope", "", true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown env status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHistory_Disabled(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil)
	rr := do(t, s, http.MethodGet, "/v1/history/staging", "", true)
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotImplemented)
	}
}

func TestMetrics_NoAuth(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil)
	rr := do(t, s, http.MethodGet, "/metrics", "", false)
	if rr.Code != http.StatusOK || rr.Body.String() != "metrics" {
		t.Errorf("status = %d body = %q", rr.Code, rr.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	l := newRateLimiter(1, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Error("third request within the same instant should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.allow("10.0.0.1") {
		t.Error("a token should be available after one second")
	}

	now = now.Add(limiterIdleTTL + time.Second)
	l.allow("10.0.0.3")
	if _, ok := l.clients["10.0.0.2"]; ok {
		t.Error("idle client limiter should have been evicted")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	s := NewServer(Options{Machine: &fakeMachine{}, Environments: fakeEnvs{}, RateLimit: 1, Burst: 1})

	first := do(t, s, http.MethodGet, "/health", "", false)
	second := do(t, s, http.MethodGet, "/health", "", false)

	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want %d", first.Code, http.StatusOK)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}

func TestRequestID_Preserved(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	if got := rr.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q, want abc-123", got)
	}
}
