package gitship

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gitship/gitship/internal/checks"
	"github.com/gitship/gitship/internal/config"
	"github.com/gitship/gitship/internal/configloader"
	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/logging"
	"github.com/gitship/gitship/internal/registry"
	"github.com/gitship/gitship/internal/repolock"
	"github.com/gitship/gitship/internal/storage"
	"github.com/gitship/gitship/internal/vcs"
)

// app is everything a command needs to drive deployments.
type app struct {
	cfg      config.Config
	registry *registry.Registry
	machine  *deploy.Machine
	states   *deploy.SQLStateStore
	history  *deploy.StorageRecorder
	db       *storage.DB
	logger   *slog.Logger
}

// newApp loads the config and wires the machine to sqlite, git and the check runner.
// envNames selects which .env.<name> files are loaded before the config is read.
func newApp(flags *rootFlags, observer deploy.Observer, envNames ...string) (*app, error) {
	config.LoadEnvFilesForEnvironments(envNames)

	logger := logging.NewLogger(logging.Level(flags.debug), os.Stderr, logging.Format(flags.logFormat))

	configFile, err := configloader.FindConfigFile(flags.configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := configloader.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	reg, err := registry.FromConfig(cfg, filepath.Dir(configFile))
	if err != nil {
		return nil, err
	}

	runner, err := checks.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	vcsTimeout, err := cfg.VCS.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("vcs.timeout: %w", err)
	}
	retry := vcs.DefaultRetryPolicy()
	retry.MaxRetries = cfg.VCS.Retries
	retry.OnRetry = func(op string, err error, wait time.Duration) {
		logger.Warn("git operation failed, retrying", "operation", op, "error", err, "wait", wait)
	}

	db, err := storage.New()
	if err != nil {
		return nil, err
	}

	adapters := func(spec registry.EnvironmentSpec) vcs.Adapter {
		return vcs.WithRetry(vcs.NewGit(spec.Repository, spec.Remote, vcsTimeout), retry)
	}

	// State and history rows are scoped to the project; every project shares the database.
	states := deploy.NewSQLStateStore(db, cfg.Deploy.Project)
	history := deploy.NewStorageRecorder(db, cfg.Deploy.Project, cfg.History.GetKeep())

	machine := deploy.NewMachine(reg, runner, adapters, deploy.Options{
		Project:  cfg.Deploy.Project,
		Store:    states,
		Recorder: history,
		Observer: observer,
		Locker:   repolock.New(),
		Logger:   logger,
	})

	return &app{
		cfg:      cfg,
		registry: reg,
		machine:  machine,
		states:   states,
		history:  history,
		db:       db,
		logger:   logger,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
