package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidEnvironmentSpec marks a malformed or incomplete environment definition.
var ErrInvalidEnvironmentSpec = errors.New("invalid environment spec")

const environmentNamespace = "Config.Deploy.Environments["

// Validate checks field constraints and cross references: environment names are unique,
// every referenced check and action is defined, and each step has exactly one kind.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidationError(err)
	}

	seen := make(map[string]struct{}, len(c.Deploy.Environments))
	for _, env := range c.Deploy.Environments {
		if _, dup := seen[env.Name]; dup {
			return fmt.Errorf("%w: environment '%s' is defined more than once", ErrInvalidEnvironmentSpec, env.Name)
		}
		seen[env.Name] = struct{}{}

		for _, id := range env.PreChecks {
			if _, ok := c.Checks[id]; !ok {
				return fmt.Errorf("%w: environment '%s': pre-check '%s' is not defined under checks", ErrInvalidEnvironmentSpec, env.Name, id)
			}
		}
		for _, id := range env.PostDeploy {
			if _, ok := c.Actions[id]; !ok {
				return fmt.Errorf("%w: environment '%s': post-deploy action '%s' is not defined under actions", ErrInvalidEnvironmentSpec, env.Name, id)
			}
		}
	}

	for id, step := range c.Checks {
		if err := validateStep(step, false); err != nil {
			return fmt.Errorf("check '%s': %w", id, err)
		}
	}
	for id, step := range c.Actions {
		if err := validateStep(step, true); err != nil {
			return fmt.Errorf("action '%s': %w", id, err)
		}
	}

	if _, err := c.VCS.GetTimeout(); err != nil {
		return fmt.Errorf("vcs.timeout: %w", err)
	}

	return nil
}

func validateStep(step *StepConfig, isAction bool) error {
	if step == nil {
		return errors.New("definition is empty")
	}
	set := 0
	for _, v := range []string{step.Command, step.HTTP, step.Webhook} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of command, http or webhook must be set")
	}
	if step.Webhook != "" && !isAction {
		return errors.New("webhook can only be used for actions")
	}
	if _, err := step.GetTimeout(0); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	inEnvironment := false
	for _, fe := range verrs {
		if strings.HasPrefix(fe.Namespace(), environmentNamespace) {
			inEnvironment = true
		}
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s entries", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got '%v'", field, fe.Param(), fe.Value()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL, got '%v'", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed '%s' validation", field, fe.Tag()))
		}
	}
	msg := strings.Join(msgs, "; ")
	if inEnvironment {
		return fmt.Errorf("%w: %s", ErrInvalidEnvironmentSpec, msg)
	}
	return errors.New(msg)
}
