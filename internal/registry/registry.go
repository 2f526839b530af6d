// Package registry resolves environment names to immutable deployment policies.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gitship/gitship/internal/config"
	"github.com/gitship/gitship/internal/constants"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
)

var (
	ErrUnknownEnvironment     = errors.New("unknown environment")
	ErrInvalidEnvironmentSpec = config.ErrInvalidEnvironmentSpec
)

// EnvironmentSpec is the resolved deployment policy of one environment.
type EnvironmentSpec struct {
	Name             string                  `validate:"required"`
	Branch           string                  `validate:"required"`
	PreChecks        []string                `validate:"dive,required"`
	PostActions      []string                `validate:"dive,required"`
	RollbackEnabled  bool
	RollbackStrategy config.RollbackStrategy `validate:"oneof=checkout reset"`
	// Baseline is the revision assumed live before the first deployment.
	Baseline string `validate:"required"`
	// Repository is the absolute path of the working tree.
	Repository string `validate:"required"`
	Remote     string `validate:"required"`
	Stash      bool
	Pull       bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	specs map[string]EnvironmentSpec
}

// New builds a registry from already resolved specs.
func New(specs ...EnvironmentSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]EnvironmentSpec, len(specs))}
	for _, spec := range specs {
		if err := validate.Struct(spec); err != nil {
			return nil, fmt.Errorf("%w: environment '%s': %v", ErrInvalidEnvironmentSpec, spec.Name, err)
		}
		if _, dup := r.specs[spec.Name]; dup {
			return nil, fmt.Errorf("%w: environment '%s' is defined more than once", ErrInvalidEnvironmentSpec, spec.Name)
		}
		var stored EnvironmentSpec
		if err := copier.CopyWithOption(&stored, &spec, copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("failed to copy environment '%s': %w", spec.Name, err)
		}
		r.specs[spec.Name] = stored
	}
	return r, nil
}

// FromConfig resolves each configured environment against the deploy section defaults.
// Relative repository paths are resolved against baseDir.
func FromConfig(cfg config.Config, baseDir string) (*Registry, error) {
	specs := make([]EnvironmentSpec, 0, len(cfg.Deploy.Environments))
	for _, env := range cfg.Deploy.Environments {
		spec, err := resolve(cfg.Deploy, env, baseDir)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return New(specs...)
}

func resolve(deploy config.DeploySection, env config.Environment, baseDir string) (EnvironmentSpec, error) {
	spec := EnvironmentSpec{
		Name:             env.Name,
		Branch:           env.Branch,
		PreChecks:        env.PreChecks,
		PostActions:      env.PostDeploy,
		RollbackEnabled:  env.Rollback,
		RollbackStrategy: env.RollbackStrategy,
		Baseline:         firstNonEmpty(env.Baseline, deploy.Baseline, constants.DefaultBaselineRevision),
		Repository:       firstNonEmpty(env.Repository, deploy.Repository, constants.DefaultRepository),
		Remote:           firstNonEmpty(env.Remote, deploy.Remote, constants.DefaultRemote),
		Stash:            env.Stash,
		Pull:             env.Pull,
	}
	if spec.RollbackStrategy == "" {
		spec.RollbackStrategy = config.RollbackStrategyCheckout
	}

	if !filepath.IsAbs(spec.Repository) {
		abs, err := filepath.Abs(filepath.Join(baseDir, spec.Repository))
		if err != nil {
			return EnvironmentSpec{}, fmt.Errorf("%w: environment '%s': repository: %v", ErrInvalidEnvironmentSpec, env.Name, err)
		}
		spec.Repository = abs
	}
	spec.Repository = filepath.Clean(spec.Repository)

	return spec, nil
}

// Lookup returns a copy of the spec for name.
func (r *Registry) Lookup(name string) (EnvironmentSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return EnvironmentSpec{}, fmt.Errorf("%w: '%s'", ErrUnknownEnvironment, name)
	}
	var out EnvironmentSpec
	if err := copier.CopyWithOption(&out, &spec, copier.Option{DeepCopy: true}); err != nil {
		return EnvironmentSpec{}, fmt.Errorf("failed to copy environment '%s': %w", name, err)
	}
	return out, nil
}

// Names returns the environment names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns copies of all specs sorted by name.
func (r *Registry) List() []EnvironmentSpec {
	out := make([]EnvironmentSpec, 0, len(r.specs))
	for _, name := range r.Names() {
		spec, err := r.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, spec)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
