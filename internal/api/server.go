package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/logging"
	"github.com/gitship/gitship/internal/registry"
	"github.com/gitship/gitship/internal/storage"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Machine is the part of deploy.Machine the API drives.
type Machine interface {
	Deploy(ctx context.Context, env, target string) (deploy.Outcome, error)
	Rollback(ctx context.Context, env string) (deploy.Outcome, error)
	Inspect(ctx context.Context, env string) (deploy.EnvironmentStatus, error)
}

type Environments interface {
	List() []registry.EnvironmentSpec
}

type History interface {
	GetDeploymentHistory(ctx context.Context, env string, limit int) ([]storage.Deployment, error)
}

type Options struct {
	Machine      Machine
	Environments Environments
	// History is optional. Without it the history route answers 501.
	History History
	// Metrics is served unauthenticated on /metrics when set.
	Metrics   http.Handler
	APIToken  string
	RateLimit float64
	Burst     int
	Logger    *slog.Logger
}

// APIServer exposes the deployment machine over HTTP.
type APIServer struct {
	router      *http.ServeMux
	machine     Machine
	envs        Environments
	history     History
	metrics     http.Handler
	apiToken    string
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

func NewServer(opts Options) *APIServer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &APIServer{
		router:      http.NewServeMux(),
		machine:     opts.Machine,
		envs:        opts.Environments,
		history:     opts.History,
		metrics:     opts.Metrics,
		apiToken:    opts.APIToken,
		rateLimiter: newRateLimiter(opts.RateLimit, opts.Burst),
		logger:      logger,
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
// Deployments in flight finish before Shutdown returns or times out.
func (s *APIServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
