package checks

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitship/gitship/internal/config"
	"github.com/gitship/gitship/internal/constants"
	"github.com/gitship/gitship/internal/logging"
)

// FromConfig builds a runner with every check and action defined in cfg. Config env vars are
// exported to command steps.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	runner := NewRunner(logger)
	env := config.ExportEnv(cfg.Env)

	for id, sc := range cfg.Checks {
		step, err := buildStep(id, sc, env, false, runner.logger)
		if err != nil {
			return nil, fmt.Errorf("check '%s': %w", id, err)
		}
		runner.RegisterCheck(id, step)
	}
	for id, sc := range cfg.Actions {
		step, err := buildStep(id, sc, env, true, runner.logger)
		if err != nil {
			return nil, fmt.Errorf("action '%s': %w", id, err)
		}
		runner.RegisterAction(id, step)
	}
	return runner, nil
}

func buildStep(id string, sc *config.StepConfig, env []string, isAction bool, logger *slog.Logger) (Step, error) {
	if sc == nil {
		return nil, errors.New("definition is empty")
	}

	switch sc.Kind() {
	case "command":
		timeout, err := sc.GetTimeout(0)
		if err != nil {
			return nil, err
		}
		return &CommandStep{Command: sc.Command, Dir: sc.Dir, Env: env, Timeout: timeout}, nil

	case "http":
		timeout, err := sc.GetTimeout(defaultDuration(constants.DefaultHTTPCheckTimeout))
		if err != nil {
			return nil, err
		}
		retry := DefaultRetryConfig()
		retry.MaxRetries = sc.Retries
		return &HTTPStep{
			URL:     sc.HTTP,
			Checker: NewHTTPChecker(timeout),
			Retry:   retry,
			OnRetry: func(attempt int, backoff time.Duration) {
				logger.Debug("retrying http check", logging.AttrCheck, id, "attempt", attempt, "backoff", backoff)
			},
		}, nil

	case "webhook":
		if !isAction {
			return nil, errors.New("webhook can only be used for actions")
		}
		timeout, err := sc.GetTimeout(defaultDuration(constants.DefaultWebhookTimeout))
		if err != nil {
			return nil, err
		}
		return NewWebhookStep(sc.Webhook, timeout), nil

	default:
		return nil, errors.New("exactly one of command, http or webhook must be set")
	}
}

func defaultDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
