package config

import (
	"fmt"
	"time"

	"github.com/gitship/gitship/internal/constants"
)

// Config is the gitship configuration file.
type Config struct {
	Deploy  DeploySection          `json:"deploy" yaml:"deploy" toml:"deploy"`
	Checks  map[string]*StepConfig `json:"checks,omitempty" yaml:"checks,omitempty" toml:"checks,omitempty" validate:"dive"`
	Actions map[string]*StepConfig `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty" validate:"dive"`
	Env     []EnvVar               `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty" validate:"dive"`
	VCS     VCSConfig              `json:"vcs,omitempty" yaml:"vcs,omitempty" toml:"vcs,omitempty"`
	History HistoryConfig          `json:"history,omitempty" yaml:"history,omitempty" toml:"history,omitempty"`
	API     APIConfig              `json:"api,omitempty" yaml:"api,omitempty" toml:"api,omitempty"`

	// Format is the file format the config was loaded from. Not part of the file.
	Format string `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

type DeploySection struct {
	Project    string `json:"project" yaml:"project" toml:"project" validate:"required"`
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty" toml:"repository,omitempty"`
	Remote     string `json:"remote,omitempty" yaml:"remote,omitempty" toml:"remote,omitempty"`
	// Baseline is the revision assumed live before the first deployment of an environment.
	Baseline     string        `json:"baseline,omitempty" yaml:"baseline,omitempty" toml:"baseline,omitempty"`
	Environments []Environment `json:"environments" yaml:"environments" toml:"environments" validate:"required,min=1,dive"`
}

type RollbackStrategy string

const (
	// RollbackStrategyCheckout checks out the previous revision.
	RollbackStrategyCheckout RollbackStrategy = "checkout"
	// RollbackStrategyReset drops the last commit with a hard reset and force pushes.
	RollbackStrategyReset RollbackStrategy = "reset"
)

type Environment struct {
	Name             string           `json:"name" yaml:"name" toml:"name" validate:"required"`
	Branch           string           `json:"branch" yaml:"branch" toml:"branch" validate:"required"`
	PreChecks        []string         `json:"preChecks,omitempty" yaml:"pre-checks,omitempty" toml:"pre-checks,omitempty"`
	PostDeploy       []string         `json:"postDeploy,omitempty" yaml:"post-deploy,omitempty" toml:"post-deploy,omitempty"`
	Rollback         bool             `json:"rollback,omitempty" yaml:"rollback,omitempty" toml:"rollback,omitempty"`
	RollbackStrategy RollbackStrategy `json:"rollbackStrategy,omitempty" yaml:"rollback-strategy,omitempty" toml:"rollback-strategy,omitempty" validate:"omitempty,oneof=checkout reset"`
	Baseline         string           `json:"baseline,omitempty" yaml:"baseline,omitempty" toml:"baseline,omitempty"`
	Repository       string           `json:"repository,omitempty" yaml:"repository,omitempty" toml:"repository,omitempty"`
	Remote           string           `json:"remote,omitempty" yaml:"remote,omitempty" toml:"remote,omitempty"`
	Stash            bool             `json:"stash,omitempty" yaml:"stash,omitempty" toml:"stash,omitempty"`
	Pull             bool             `json:"pull,omitempty" yaml:"pull,omitempty" toml:"pull,omitempty"`
}

// StepConfig defines a named check or action. Exactly one of Command, HTTP or Webhook is set.
type StepConfig struct {
	Command string `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
	HTTP    string `json:"http,omitempty" yaml:"http,omitempty" toml:"http,omitempty" validate:"omitempty,url"`
	Webhook string `json:"webhook,omitempty" yaml:"webhook,omitempty" toml:"webhook,omitempty" validate:"omitempty,url"`
	// Dir is the working directory for commands, relative to the repository.
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Retries int    `json:"retries,omitempty" yaml:"retries,omitempty" toml:"retries,omitempty" validate:"gte=0,lte=20"`
}

func (s *StepConfig) Kind() string {
	switch {
	case s.Command != "":
		return "command"
	case s.HTTP != "":
		return "http"
	case s.Webhook != "":
		return "webhook"
	default:
		return ""
	}
}

// GetTimeout parses Timeout, returning def when unset.
func (s *StepConfig) GetTimeout(def time.Duration) (time.Duration, error) {
	return parseDuration(s.Timeout, def)
}

type EnvVar struct {
	Name  string `json:"name" yaml:"name" toml:"name" validate:"required"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

type VCSConfig struct {
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Retries int    `json:"retries,omitempty" yaml:"retries,omitempty" toml:"retries,omitempty" validate:"gte=0,lte=10"`
}

// GetTimeout returns the per-operation timeout. Zero means no timeout.
func (c *VCSConfig) GetTimeout() (time.Duration, error) {
	return parseDuration(c.Timeout, 0)
}

type HistoryConfig struct {
	Keep *int `json:"keep,omitempty" yaml:"keep,omitempty" toml:"keep,omitempty"`
}

// GetKeep returns how many deployment records to keep per environment.
func (c *HistoryConfig) GetKeep() int {
	if c.Keep == nil || *c.Keep <= 0 {
		return constants.DefaultHistoryKeep
	}
	return *c.Keep
}

type APIConfig struct {
	Listen    string  `json:"listen,omitempty" yaml:"listen,omitempty" toml:"listen,omitempty"`
	RateLimit float64 `json:"rateLimit,omitempty" yaml:"rate-limit,omitempty" toml:"rate-limit,omitempty" validate:"gte=0"`
	Burst     int     `json:"burst,omitempty" yaml:"burst,omitempty" toml:"burst,omitempty" validate:"gte=0"`
}

func (c *APIConfig) GetListen() string {
	if c.Listen == "" {
		return constants.DefaultAPIListenAddress
	}
	return c.Listen
}

// GetRateLimit returns requests per second and burst, defaulting to 5/10.
func (c *APIConfig) GetRateLimit() (float64, int) {
	limit, burst := c.RateLimit, c.Burst
	if limit <= 0 {
		limit = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return limit, burst
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}
