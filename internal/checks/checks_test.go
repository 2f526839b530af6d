package checks

import (
	"context"
	"errors"
	"testing"
)

type recordingStep struct {
	id    string
	err   error
	calls *[]string
}

func (s recordingStep) Run(ctx context.Context, target Target) error {
	*s.calls = append(*s.calls, s.id)
	return s.err
}

func newTestRunner(calls *[]string, checkErrs, actionErrs map[string]error) *Runner {
	r := NewRunner(nil)
	for id, err := range checkErrs {
		r.RegisterCheck(id, recordingStep{id: "check:" + id, err: err, calls: calls})
	}
	for id, err := range actionErrs {
		r.RegisterAction(id, recordingStep{id: "action:" + id, err: err, calls: calls})
	}
	return r
}

func TestRunChecks(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		checks     map[string]error
		ids        []string
		wantPassed bool
		wantFailed string
		wantCalls  []string
		wantErr    error
	}{
		{
			name:       "empty list passes",
			checks:     map[string]error{},
			wantPassed: true,
		},
		{
			name:       "all pass in order",
			checks:     map[string]error{"a": nil, "b": nil, "c": nil},
			ids:        []string{"c", "a", "b"},
			wantPassed: true,
			wantCalls:  []string{"check:c", "check:a", "check:b"},
		},
		{
			name:       "short circuits on first failure",
			checks:     map[string]error{"a": nil, "b": boom, "c": nil},
			ids:        []string{"a", "b", "c"},
			wantFailed: "b",
			wantCalls:  []string{"check:a", "check:b"},
			wantErr:    boom,
		},
		{
			name:       "unknown check fails",
			checks:     map[string]error{"a": nil, "c": nil},
			ids:        []string{"a", "missing", "c"},
			wantFailed: "missing",
			wantCalls:  []string{"check:a"},
			wantErr:    ErrUnknownCheck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			r := newTestRunner(&calls, tt.checks, nil)

			report := r.RunChecks(context.Background(), tt.ids, Target{Environment: "staging"})

			if report.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", report.Passed, tt.wantPassed)
			}
			if report.FailedID != tt.wantFailed {
				t.Errorf("FailedID = %q, want %q", report.FailedID, tt.wantFailed)
			}
			if tt.wantErr != nil && !errors.Is(report.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", report.Err, tt.wantErr)
			}
			if !equal(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
		})
	}
}

func TestRunActions_AlwaysRunsToCompletion(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := newTestRunner(&calls, nil, map[string]error{"notify": boom, "tag": nil})

	results := r.RunActions(context.Background(), []string{"notify", "missing", "tag"}, Target{})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !errors.Is(results[0].Err, boom) {
		t.Errorf("notify err = %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrUnknownAction) || results[1].ID != "missing" {
		t.Errorf("missing result = %+v", results[1])
	}
	if !results[2].Succeeded() {
		t.Errorf("tag should succeed: %v", results[2].Err)
	}
	if !equal(calls, []string{"action:notify", "action:tag"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestStepFunc(t *testing.T) {
	var got Target
	step := StepFunc(func(ctx context.Context, target Target) error {
		got = target
		return nil
	})
	if err := step.Run(context.Background(), Target{Revision: "abc"}); err != nil {
		t.Fatal(err)
	}
	if got.Revision != "abc" {
		t.Errorf("target not passed through: %+v", got)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
