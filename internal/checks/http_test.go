package checks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPChecker_Check_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"200 OK", http.StatusOK, false},
		{"204 No Content", http.StatusNoContent, false},
		{"301 Redirect", http.StatusMovedPermanently, false},
		{"404 Not Found", http.StatusNotFound, true},
		{"500 Internal Server Error", http.StatusInternalServerError, true},
		{"503 Service Unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.statusCode == http.StatusMovedPermanently {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			err := NewHTTPChecker(5*time.Second).Check(context.Background(), server.URL+"/health")
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPChecker_Check_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewHTTPChecker(100*time.Millisecond).Check(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Errorf("Check() error = %v, want wrapped request failure", err)
	}
}

func TestHTTPChecker_Check_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewHTTPChecker(time.Second).Check(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Check() error = %v, want context canceled", err)
	}
}

func TestHTTPChecker_CheckWithRetry_EventualSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var retries []int
	config := RetryConfig{MaxRetries: 5, InitialBackoff: 5 * time.Millisecond, MaxBackoff: 20 * time.Millisecond}
	err := NewHTTPChecker(time.Second).CheckWithRetry(context.Background(), server.URL, config, func(attempt int, backoff time.Duration) {
		retries = append(retries, attempt)
	})
	if err != nil {
		t.Fatalf("CheckWithRetry() error = %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retries) != 2 {
		t.Errorf("onRetry called %d times, want 2", len(retries))
	}
}

func TestHTTPChecker_CheckWithRetry_Exhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	err := NewHTTPChecker(time.Second).CheckWithRetry(context.Background(), server.URL, config, nil)
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("CheckWithRetry() error = %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestHTTPStep_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	step := &HTTPStep{URL: server.URL, Checker: NewHTTPChecker(time.Second), Retry: DefaultRetryConfig()}
	if err := step.Run(context.Background(), Target{}); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
