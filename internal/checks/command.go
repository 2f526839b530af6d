package checks

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gitship/gitship/internal/cmdexec"
)

// CommandStep is the "command" step kind. The command runs without a shell in the
// repository (or Dir below it) with the deployment described in GITSHIP_* variables.
type CommandStep struct {
	Command string
	Dir     string
	Env     []string
	Timeout time.Duration
}

func (s *CommandStep) Run(ctx context.Context, target Target) error {
	spec, err := cmdexec.Parse(s.Command)
	if err != nil {
		return err
	}

	spec.Dir = target.Repository
	if s.Dir != "" {
		if filepath.IsAbs(s.Dir) {
			spec.Dir = s.Dir
		} else {
			spec.Dir = filepath.Join(target.Repository, s.Dir)
		}
	}
	spec.Env = append(append([]string{}, s.Env...), targetEnv(target)...)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if _, err := cmdexec.Exec(ctx, spec); err != nil {
		return err
	}
	return nil
}

func targetEnv(t Target) []string {
	return []string{
		fmt.Sprintf("GITSHIP_PROJECT=%s", t.Project),
		fmt.Sprintf("GITSHIP_ENVIRONMENT=%s", t.Environment),
		fmt.Sprintf("GITSHIP_BRANCH=%s", t.Branch),
		fmt.Sprintf("GITSHIP_REVISION=%s", t.Revision),
		fmt.Sprintf("GITSHIP_PREVIOUS_REVISION=%s", t.Previous),
	}
}
